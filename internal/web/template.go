package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/n30linux/pda-power/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"upper": strings.ToUpper,
	"lineClass": func(s string) string {
		switch s {
		case "ONLINE":
			return "on"
		case "OFFLINE":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PDA Power ({{.Config.Board}})</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>PDA Power <small>{{.Config.Board}}</small>{{if .Suspended}} <span class="unknown">(suspended)</span>{{end}}</h1>

<h2>Battery</h2>
<table>
<tr><th>Capacity</th>{{if .Capacity}}<td>{{.Capacity}}%</td>{{else}}<td class="unknown">unavailable{{if .CapacityErr}} ({{.CapacityErr}}){{end}}</td>{{end}}</tr>
{{range $name, $state := .Lines}}<tr><th>{{upper $name}}</th><td class="{{lineClass (printf "%s" $state)}}">{{stateOrUnknown (printf "%s" $state)}}</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

{{if .GPS.Present}}<h2>GPS</h2>
<table>
<tr><th>Rail</th><td>{{stateOrUnknown .GPS.State}}</td></tr>
<tr><th>Power</th>{{if .GPS.Err}}<td class="unknown">{{.GPS.Err}}</td>{{else}}<td class="{{if .GPS.Powered}}on{{else}}off{{end}}">{{if .GPS.Powered}}ON{{else}}OFF{{end}}</td>{{end}}</tr>
</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
{{range $event, $n := .Counts}}<tr><th>{{printf "%s" $event}}</th><td>{{$n}}</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Capacity interval</th><td>{{.Config.CapacityIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/battery/uevent">battery uevent</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
