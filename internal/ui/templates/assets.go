package templates

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
	plotlyScript   = "https://cdn.jsdelivr.net/npm/plotly.js-dist-min@2.35.2/plotly.min.js"
)

const dashboardCSS = `
body{margin:0;font-family:system-ui,-apple-system,Segoe UI,sans-serif;background:#f4f6f8;color:#1d2733}
.layout{display:flex;min-height:100vh}
.sidebar{width:260px;padding:1.5rem;background:#0f3b47;color:#e8f3f4;box-sizing:border-box}
.sidebar h1{font-size:1.25rem;margin:0 0 .25rem}
.subtitle{font-size:.85rem;opacity:.8;margin:0 0 1.5rem}
nav{display:flex;flex-direction:column;gap:.25rem;margin-bottom:1.5rem}
nav button{background:none;border:0;color:inherit;text-align:left;padding:.5rem .75rem;border-radius:6px;cursor:pointer;font-size:.95rem}
nav button:hover,nav button.active{background:#1f6f78}
input[type=range]{width:100%}
main{flex:1;padding:1.5rem 2rem;overflow-x:auto}
.caption{color:#5b6b7a;font-size:.85rem}
.panel{background:#fff;border-radius:10px;padding:1rem 1.25rem;margin:1rem 0;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.panel h3{margin:.25rem 0 .75rem;font-size:1.05rem}
.chart{min-height:420px}
.placeholder{color:#8a96a3;font-style:italic}
.alert{background:#fdecea;color:#8a1c12;padding:1rem;border-radius:8px}
.metrics{display:grid;grid-template-columns:repeat(auto-fit,minmax(160px,1fr));gap:1rem}
.metric{background:#eef6f6;border-radius:8px;padding:.75rem 1rem;display:flex;flex-direction:column}
.metric .label{font-size:.8rem;color:#5b6b7a}
.metric .value{font-size:1.5rem;font-weight:600}
.table-wrap{max-height:480px;overflow:auto}
table{border-collapse:collapse;width:100%;font-size:.85rem}
th,td{padding:.4rem .6rem;border-bottom:1px solid #e3e8ec;text-align:left}
th{position:sticky;top:0;background:#fff}
.wordcloud{line-height:1.6;text-align:center}
.wordcloud span{display:inline-block;margin:0 .35rem;color:#1f6f78}
`

// chartsJS draws every entry of the _charts signal with Plotly.
const chartsJS = `
function renderCharts(charts) {
  if (!window.Plotly || !charts) return;
  for (const [id, spec] of Object.entries(charts)) {
    const el = document.getElementById('chart-' + id);
    if (!el || !spec || !spec.data) continue;
    const layout = {
      title: {text: spec.title},
      xaxis: {title: {text: spec.x_label || ''}},
      yaxis: {title: {text: spec.y_label || ''}},
      margin: {t: 48, l: 64, r: 24, b: 96},
    };
    Plotly.react(el, traces(spec), layout, {responsive: true});
  }
}

function traces(spec) {
  const d = spec.data;
  const scale = spec.color_scale || 'Tealgrn';
  switch (spec.kind) {
  case 'bar':
    return [{type: 'bar', x: d.map(r => r[spec.x_field]), y: d.map(r => r[spec.y_field]),
      marker: {color: d.map(r => r[spec.y_field]), colorscale: scale}}];
  case 'pie':
    return [{type: 'pie', labels: d.map(r => r[spec.x_field]), values: d.map(r => r[spec.y_field])}];
  case 'histogram':
    return [{type: 'bar', x: d.bins.map(b => (b.start + b.end) / 2), y: d.bins.map(b => b.count),
      width: d.bins.map(b => b.end - b.start), marker: {color: '#1f6f78'}}];
  case 'scatter':
    return d.map(s => ({type: 'scattergl', mode: 'markers', name: s.category,
      x: s.points.map(p => p.x), y: s.points.map(p => p.y), text: s.points.map(p => p.name),
      marker: s.points.some(p => p.size != null)
        ? {size: s.points.map(p => p.size || 0), sizemode: 'area', sizeref: 50, sizemin: 3}
        : {size: 6}}));
  case 'box':
    return d.map(b => ({type: 'box', name: b.category, q1: [b.q1], median: [b.median], q3: [b.q3],
      lowerfence: [b.lower_fence], upperfence: [b.upper_fence]}));
  case 'heatmap':
    if (d.fields) {
      return [{type: 'heatmap', x: d.fields, y: d.fields, z: d.values, zmin: -1, zmax: 1, colorscale: scale,
        texttemplate: '%{z:.2f}'}];
    }
    return [{type: 'heatmap', x: d.columns, y: d.rows, z: d.cells, colorscale: scale}];
  }
  return [];
}
`
