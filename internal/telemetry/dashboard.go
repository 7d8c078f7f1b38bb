package telemetry

// dashboardHTML is served at "/". It opens the event stream on the same
// host, pings once, and renders the most recent events.
const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>BrowserGuard Debug</title>
  <style>
    body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 20px; background: #f5f5f5; }
    .container { max-width: 1200px; margin: 0 auto; background: #fff; padding: 20px; border-radius: 8px; }
    .status { padding: 10px; margin: 10px 0; border-radius: 4px; }
    .connected { background: #d4edda; color: #155724; }
    .disconnected { background: #f8d7da; color: #721c24; }
    .event { padding: 8px; margin: 5px 0; border-left: 4px solid #007bff; background: #f8f9fa; font-size: 13px; }
    .event.domain-blocked, .event.browser-killed { border-left-color: #dc3545; }
    .event.log-entry { border-left-color: #6c757d; }
    pre { white-space: pre-wrap; word-break: break-all; margin: 4px 0 0; }
  </style>
</head>
<body>
  <div class="container">
    <h1>BrowserGuard Debug</h1>
    <div id="connection-status" class="status disconnected">Connecting...</div>
    <h2>System</h2>
    <div id="system-status">Loading...</div>
    <h2>Events</h2>
    <div id="events"></div>
  </div>
  <script>
    var maxEvents = 50;
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';

    function setConnected(ok, text) {
      var el = document.getElementById('connection-status');
      el.textContent = text;
      el.className = 'status ' + (ok ? 'connected' : 'disconnected');
    }

    function addEvent(event) {
      var list = document.getElementById('events');
      var div = document.createElement('div');
      div.className = 'event ' + event.type;
      var head = document.createElement('strong');
      head.textContent = event.type + ' - ' + new Date(event.timestamp).toLocaleTimeString();
      var body = document.createElement('pre');
      body.textContent = JSON.stringify(event.data, null, 2);
      div.appendChild(head);
      div.appendChild(body);
      list.insertBefore(div, list.firstChild);
      while (list.children.length > maxEvents) {
        list.removeChild(list.lastChild);
      }
    }

    function connect() {
      var ws = new WebSocket(proto + location.host + '/ws');
      ws.onopen = function () {
        setConnected(true, 'Connected to debug server');
        ws.send(JSON.stringify({ type: 'ping' }));
      };
      ws.onclose = function () {
        setConnected(false, 'Disconnected from debug server');
        setTimeout(connect, 3000);
      };
      ws.onerror = function () {
        setConnected(false, 'WebSocket connection error');
      };
      ws.onmessage = function (msg) {
        try { addEvent(JSON.parse(msg.data)); } catch (e) { console.error(e); }
      };
    }

    fetch('/api/status')
      .then(function (r) { return r.json(); })
      .then(function (s) {
        document.getElementById('system-status').innerHTML = '';
        var pre = document.createElement('pre');
        pre.textContent = JSON.stringify(s, null, 2);
        document.getElementById('system-status').appendChild(pre);
      })
      .catch(function (e) {
        document.getElementById('system-status').textContent = 'Error: ' + e.message;
      });

    connect();
  </script>
</body>
</html>
`
