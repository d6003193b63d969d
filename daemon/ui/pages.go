package ui

// searchPage is the built-in landing page. The embedded script queries
// the daemon's own /v1/search endpoint and renders the results, so the
// page never talks to the upstream hub directly.
const searchPage = `<!DOCTYPE html>
<html>
<head>
	<title>Registry Search</title>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<style>
	* { box-sizing: border-box; margin: 0; padding: 0; }

	body {
		display: flex;
		flex-direction: column;
		align-items: center;
		min-height: 100vh;
		background: linear-gradient(120deg, #1a90ff 0%, #003eb3 100%);
		font-family: Tahoma, Verdana, Arial, sans-serif;
		padding: 40px 20px;
	}

	.container {
		width: 100%;
		max-width: 720px;
		text-align: center;
	}

	h1 {
		color: #ffffff;
		margin-bottom: 30px;
		font-weight: normal;
	}

	.search-box {
		display: flex;
		width: 100%;
		height: 48px;
		margin-bottom: 30px;
	}

	#search-input {
		flex: 1;
		padding: 0 18px;
		font-size: 16px;
		border: none;
		border-radius: 6px 0 0 6px;
		outline: none;
	}

	#search-button {
		padding: 0 24px;
		font-size: 16px;
		color: #ffffff;
		background-color: #0066ff;
		border: none;
		border-radius: 0 6px 6px 0;
		cursor: pointer;
	}

	#search-button:hover { background-color: #0052cc; }

	#results { text-align: left; }

	.result {
		background: rgba(255,255,255,0.95);
		border-radius: 6px;
		padding: 14px 18px;
		margin-bottom: 12px;
	}

	.result .name {
		font-weight: bold;
		color: #003eb3;
	}

	.result .badge {
		font-size: 0.75em;
		color: #ffffff;
		background-color: #0066ff;
		border-radius: 4px;
		padding: 2px 6px;
		margin-left: 8px;
	}

	.result .description {
		color: #333333;
		margin-top: 6px;
		font-size: 0.9em;
	}

	.result .pull {
		display: block;
		margin-top: 8px;
		padding: 6px 10px;
		font-family: monospace;
		font-size: 0.85em;
		color: #eeeeee;
		background-color: #1d1d1d;
		border-radius: 4px;
	}

	.status {
		color: rgba(255,255,255,0.85);
		font-size: 0.9em;
	}
	</style>
</head>
<body>
	<div class="container">
		<h1>Registry Search</h1>
		<div class="search-box">
			<input type="text" id="search-input" placeholder="Search images, e.g. nginx">
			<button id="search-button">Search</button>
		</div>
		<div id="results"></div>
	</div>
	<script>
	function render(data) {
		var results = document.getElementById('results');
		results.innerHTML = '';
		if (!data.results || data.results.length === 0) {
			results.innerHTML = '<p class="status">No results.</p>';
			return;
		}
		data.results.forEach(function (entry) {
			var card = document.createElement('div');
			card.className = 'result';
			var name = document.createElement('span');
			name.className = 'name';
			name.textContent = entry.name;
			card.appendChild(name);
			if (entry.is_official) {
				var badge = document.createElement('span');
				badge.className = 'badge';
				badge.textContent = 'official';
				card.appendChild(badge);
			}
			var stars = document.createElement('span');
			stars.className = 'badge';
			stars.textContent = (entry.star_count || 0) + ' stars';
			card.appendChild(stars);
			if (entry.description) {
				var desc = document.createElement('p');
				desc.className = 'description';
				desc.textContent = entry.description;
				card.appendChild(desc);
			}
			var pull = document.createElement('code');
			pull.className = 'pull';
			pull.textContent = 'docker pull ' + window.location.host + '/' + entry.name;
			card.appendChild(pull);
			results.appendChild(card);
		});
	}

	function performSearch() {
		var query = document.getElementById('search-input').value.trim();
		if (!query) {
			return;
		}
		var results = document.getElementById('results');
		results.innerHTML = '<p class="status">Searching…</p>';
		fetch('/v1/search?q=' + encodeURIComponent(query) + '&n=25')
			.then(function (resp) {
				if (!resp.ok) {
					throw new Error('search failed: ' + resp.status);
				}
				return resp.json();
			})
			.then(render)
			.catch(function (err) {
				results.innerHTML = '';
				var p = document.createElement('p');
				p.className = 'status';
				p.textContent = String(err);
				results.appendChild(p);
			});
	}

	document.getElementById('search-button').addEventListener('click', performSearch);
	document.getElementById('search-input').addEventListener('keypress', function (event) {
		if (event.key === 'Enter') {
			performSearch();
		}
	});
	</script>
</body>
</html>`

// placeholderPage is the stock nginx welcome page, byte for byte what
// a fresh web-server install would serve.
const placeholderPage = `<!DOCTYPE html>
<html>
<head>
<title>Welcome to nginx!</title>
<style>
html { color-scheme: light dark; }
body { width: 35em; margin: 0 auto;
font-family: Tahoma, Verdana, Arial, sans-serif; }
</style>
</head>
<body>
<h1>Welcome to nginx!</h1>
<p>If you see this page, the nginx web server is successfully installed and
working. Further configuration is required.</p>

<p>For online documentation and support please refer to
<a href="http://nginx.org/">nginx.org</a>.<br/>
Commercial support is available at
<a href="http://nginx.com/">nginx.com</a>.</p>

<p><em>Thank you for using nginx.</em></p>
</body>
</html>
`
