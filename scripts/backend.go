// Backend is a simple test HTTP server used for proxy testing.
// It echoes the request line it received, which makes path rewriting
// directly observable.
//
// Usage:
//
//	go run backend.go -port 8081 -name backend-a
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

// Echo is the response payload describing the request as the backend saw it.
type Echo struct {
	Backend string `json:"backend"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Proto   string `json:"proto"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	name := flag.String("name", "backend", "name reported in responses")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[%s] %s %s %s", *name, r.Method, r.RequestURI, r.Proto)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Echo{
			Backend: *name,
			Method:  r.Method,
			Path:    r.RequestURI,
			Proto:   r.Proto,
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("[%s] listening on %s", *name, addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
