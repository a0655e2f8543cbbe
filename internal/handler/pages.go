package handler

import (
	"embed"
	"net/http"
)

//go:embed static/*.html
var pages embed.FS

func servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := pages.ReadFile("static/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}

// Pages serves the browser front end. The sign and quiz pages read their id
// from the URL and talk to the JSON API.
type Pages struct{}

func (Pages) Index(w http.ResponseWriter, r *http.Request) { servePage("index.html")(w, r) }
func (Pages) Sign(w http.ResponseWriter, r *http.Request)  { servePage("sign.html")(w, r) }
func (Pages) Quiz(w http.ResponseWriter, r *http.Request)  { servePage("quiz.html")(w, r) }
