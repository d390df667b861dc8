package server

import "net/http"

// handleIndex serves a minimal control page. The sliders drive
// /preview.png directly; nothing here holds conversion state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>pc2pgm preview</title>
<style>
  body { font-family: monospace; margin: 2rem; background: #1e1e2e; color: #cdd6f4; }
  label { display: inline-block; width: 8rem; }
  input[type=number] { width: 7rem; background: #313244; color: #cdd6f4; border: 1px solid #585b70; }
  img { margin-top: 1rem; image-rendering: pixelated; border: 1px solid #585b70; max-width: 100%; }
  a { color: #89b4fa; }
</style>
</head>
<body>
<h1>pc2pgm</h1>
<div>
  <label for="z_min">z_min</label><input type="number" id="z_min" step="0.05"><br>
  <label for="z_max">z_max</label><input type="number" id="z_max" step="0.05"><br>
  <label for="resolution">resolution</label><input type="number" id="resolution" step="0.01" min="0.01"><br>
  <label for="min_points">min_points</label><input type="number" id="min_points" step="1" min="1"><br>
</div>
<p>
  <a id="pgm" href="/map.pgm">map.pgm</a>
  <a id="yaml" href="/map.yaml">map.yaml</a>
</p>
<img id="preview" alt="occupancy grid preview">
<script>
const ids = ["z_min", "z_max", "resolution", "min_points"];

function query() {
  const q = new URLSearchParams();
  for (const id of ids) {
    const v = document.getElementById(id).value;
    if (v !== "") q.set(id, v);
  }
  return q.toString();
}

function refresh() {
  const q = query();
  document.getElementById("preview").src = "/preview.png?" + q;
  document.getElementById("pgm").href = "/map.pgm?" + q;
  document.getElementById("yaml").href = "/map.yaml?" + q;
}

fetch("/api/info").then(r => r.json()).then(info => {
  document.getElementById("z_min").value = info.z_min.toFixed(3);
  document.getElementById("z_max").value = info.z_max.toFixed(3);
  document.getElementById("resolution").value = info.defaults.resolution;
  document.getElementById("min_points").value = info.defaults.min_points;
  refresh();
});

for (const id of ids) {
  document.getElementById(id).addEventListener("change", refresh);
}
</script>
</body>
</html>
`
