package web

import (
	"html/template"
	"net/http"
)

const htmlTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>HiLBee rig panel</title>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; }
        .card { background: white; padding: 20px; margin: 10px 0; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .connected { color: #4CAF50; font-weight: bold; }
        .disconnected { color: #f44336; font-weight: bold; }
        button { background-color: #2196F3; color: white; border: none; padding: 10px 20px; margin: 5px; border-radius: 4px; cursor: pointer; }
        button:hover { background-color: #1976D2; }
        input, select { padding: 8px; margin: 5px; border: 1px solid #ddd; border-radius: 4px; }
        .response { background-color: #f0f0f0; padding: 10px; margin: 10px 0; border-radius: 4px; min-height: 30px; }
        .log { height: 200px; overflow-y: scroll; background-color: #000; color: #0f0; padding: 10px; font-family: monospace; font-size: 12px; }
        h1 { color: #333; text-align: center; }
        h2 { color: #555; border-bottom: 2px solid #2196F3; padding-bottom: 5px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>🍯 HiLBee rig panel</h1>

        <div class="card">
            <h2>📊 Rig status</h2>
            <p>Bus: <span id="bus-status" class="disconnected">loading...</span></p>
            <p>Scale weight: <span id="weight">-</span> g</p>
            <p>Tap position: <span id="actuator">-</span> %</p>
            <p>Fill height: <span id="fill">-</span> cm</p>
            <p>Flow: <span id="flow">-</span> g/s</p>
        </div>

        <div class="card">
            <h2>🫙 Jar</h2>
            <button onclick="post('/jar/place')">Place jar</button>
            <button onclick="post('/jar/remove')">Remove jar</button>
            <button onclick="post('/jar/auto?on=true')">Auto on</button>
            <button onclick="post('/jar/auto?on=false')">Auto off</button>
        </div>

        <div class="card">
            <h2>🌡️ Environment</h2>
            <input id="fill-cm" type="number" value="60" step="1"> cm
            <button onclick="post('/fill?cm=' + document.getElementById('fill-cm').value)">Set fill</button>
            <br>
            <input id="temp-c" type="number" value="20" step="0.5"> °C
            <button onclick="post('/temperature?c=' + document.getElementById('temp-c').value)">Set temperature</button>
            <br>
            <select id="visc">
                <option>low</option>
                <option selected>medium</option>
                <option>high</option>
            </select>
            <button onclick="post('/viscosity?type=' + document.getElementById('visc').value)">Set viscosity</button>
            <button onclick="post('/state/copy')">📋 Copy state</button>
        </div>

        <div class="card">
            <h2>📜 Log</h2>
            <div class="response" id="response"></div>
            <div class="log" id="log"></div>
        </div>
    </div>

    <script>
        function post(url) {
            fetch(url, {method: 'POST'})
                .then(r => r.text())
                .then(t => document.getElementById('response').textContent = t);
        }

        function refresh() {
            fetch('/status').then(r => r.json()).then(s => {
                const bus = document.getElementById('bus-status');
                bus.textContent = s.bus_connected ? 'connected' : 'disconnected';
                bus.className = s.bus_connected ? 'connected' : 'disconnected';
                document.getElementById('weight').textContent = s.last_weight_g.toFixed(1);
                document.getElementById('actuator').textContent = s.last_actuator.toFixed(1);
                document.getElementById('fill').textContent = s.state.fill_height_cm.toFixed(1);
                document.getElementById('flow').textContent = s.state.flow_g_per_s.toFixed(1);
            });
        }
        setInterval(refresh, 1000);
        refresh();

        const log = document.getElementById('log');
        const events = new EventSource('/logs/stream');
        events.onmessage = e => {
            const msg = JSON.parse(e.data);
            log.innerHTML += msg.time + ' [' + msg.type + '] ' + msg.message + '<br>';
            log.scrollTop = log.scrollHeight;
        };
    </script>
</body>
</html>
`

func indexHandler(w http.ResponseWriter, r *http.Request) {
	tmpl := template.Must(template.New("index").Parse(htmlTemplate))
	tmpl.Execute(w, nil)
}
