package web

import (
	"fmt"
	"log"
	"net/http"

	"hilbee/jar"
	"hilbee/model"
)

// BusStatus is what the panel shows about the broker connection.
type BusStatus interface {
	Connected() bool
}

// Panel bundles everything the handlers touch.
type Panel struct {
	Model  *model.Dispenser
	Jar    *jar.Controller
	Bus    BusStatus
	BusURL string
}

// StartServer runs the rig panel. Blocks; meant to run on its own goroutine.
func StartServer(addr string, panel *Panel) {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		indexHandler(w, r)
	})
	http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		statusHandler(w, r, panel)
	})
	http.HandleFunc("/ports", func(w http.ResponseWriter, r *http.Request) {
		portsHandler(w, r)
	})
	http.HandleFunc("/jar/place", func(w http.ResponseWriter, r *http.Request) {
		jarPlaceHandler(w, r, panel)
	})
	http.HandleFunc("/jar/remove", func(w http.ResponseWriter, r *http.Request) {
		jarRemoveHandler(w, r, panel)
	})
	http.HandleFunc("/jar/auto", func(w http.ResponseWriter, r *http.Request) {
		jarAutoHandler(w, r, panel)
	})
	http.HandleFunc("/fill", func(w http.ResponseWriter, r *http.Request) {
		fillHandler(w, r, panel)
	})
	http.HandleFunc("/temperature", func(w http.ResponseWriter, r *http.Request) {
		temperatureHandler(w, r, panel)
	})
	http.HandleFunc("/viscosity", func(w http.ResponseWriter, r *http.Request) {
		viscosityHandler(w, r, panel)
	})
	http.HandleFunc("/state/copy", func(w http.ResponseWriter, r *http.Request) {
		stateCopyHandler(w, r, panel)
	})
	http.HandleFunc("/logs/stream", func(w http.ResponseWriter, r *http.Request) {
		logsStreamHandler(w, r)
	})

	fmt.Println("Rig panel running on http://localhost" + addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
