package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/atotto/clipboard"

	"hilbee/devices"
	"hilbee/logging"
	"hilbee/model"
	"hilbee/types"
)

type statusResponse struct {
	types.RigStatus
	State model.State `json:"state"`
}

func statusHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	state := panel.Model.State()
	resp := statusResponse{
		RigStatus: types.RigStatus{
			BusConnected:  panel.Bus.Connected(),
			BusURL:        panel.BusURL,
			LastWeightG:   state.TotalDispensedG + panel.Jar.Offset.Load(),
			LastActuator:  state.TapOpening * 100.0,
			WeightOffsetG: panel.Jar.Offset.Load(),
			AutoJar:       panel.Jar.AutoRunning(),
		},
		State: state,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func portsHandler(w http.ResponseWriter, r *http.Request) {
	ports, err := devices.ListPorts()
	if err != nil {
		http.Error(w, fmt.Sprintf("port enumeration failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ports)
}

func jarPlaceHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	panel.Jar.Place()
	w.Write([]byte("Jar is on the scale"))
}

func jarRemoveHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	panel.Jar.Remove()
	w.Write([]byte("No jar on the scale"))
}

func jarAutoHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Query().Get("on") {
	case "true", "1":
		panel.Jar.StartAuto()
		w.Write([]byte("Auto jar placement on"))
	case "false", "0":
		panel.Jar.StopAuto()
		w.Write([]byte("Auto jar placement off"))
	default:
		http.Error(w, "on must be true or false", http.StatusBadRequest)
	}
}

func fillHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cm, err := strconv.ParseFloat(r.URL.Query().Get("cm"), 64)
	if err != nil {
		http.Error(w, "cm must be a number", http.StatusBadRequest)
		return
	}
	panel.Model.SetFillHeight(cm)
	fmt.Fprintf(w, "Fill height set to %.1f cm", panel.Model.FillHeight())
}

func temperatureHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c, err := strconv.ParseFloat(r.URL.Query().Get("c"), 64)
	if err != nil {
		http.Error(w, "c must be a number", http.StatusBadRequest)
		return
	}
	panel.Model.SetTemperature(c)
	fmt.Fprintf(w, "Temperature set to %.1f °C", c)
}

func viscosityHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Unknown presets are ignored by the model, so report what stuck.
	panel.Model.SetViscosityType(r.URL.Query().Get("type"))
	fmt.Fprintf(w, "Viscosity preset: %s", panel.Model.State().ViscosityType)
}

func stateCopyHandler(w http.ResponseWriter, r *http.Request, panel *Panel) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := json.MarshalIndent(panel.Model.State(), "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		http.Error(w, fmt.Sprintf("clipboard error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Write([]byte("State snapshot copied to clipboard"))
}

func logsStreamHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := make(chan types.LogMessage, 100)
	logging.AddClient(client)
	defer logging.RemoveClient(client)

	for {
		select {
		case msg := <-client:
			data, _ := json.Marshal(msg)
			fmt.Fprintf(w, "data: %s\n\n", data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
