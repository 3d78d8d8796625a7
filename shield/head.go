package shield

import "net/http"

// HeadToGet rewrites HEAD to GET before routing. The svglens routes are
// registered with r.Get only, so without the rewrite a HEAD request would hit
// chi's 405; net/http already strips the body from HEAD responses, making
// the rewritten request semantically correct.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
