package demosite

// IndexPage links the demo targets.
const IndexPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Webgrade demo targets</title>
  <link rel="icon" href="/favicon.ico">
</head>
<body>
  <h1>Demo targets</h1>
  <ul>
    <li><a href="/good">Good page</a> scores well on every criterion</li>
    <li><a href="/bad">Bad page</a> trips most checks</li>
    <li><a href="/cookie">Cookie page</a> sets flagged and unflagged cookies</li>
  </ul>
</body>
</html>`

// GoodPage is deliberately well-formed: valid doctype, lang, viewport,
// canonical, labelled form, ordered headings, alt text, structured data.
const GoodPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta name="description" content="A deliberately well-formed demo page used to exercise every quality criterion webgrade scores.">
  <meta name="robots" content="index,follow">
  <title>Well-formed demo page</title>
  <link rel="canonical" href="https://demo.webgrade.dev/good">
  <link rel="icon" href="/favicon.ico">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"WebPage"}</script>
</head>
<body>
  <h1>A tidy page</h1>
  <h2>Structure</h2>
  <p>Headings descend one level at a time.</p>
  <h3>Media</h3>
  <img src="/static/logo.png" alt="Webgrade demo logo">
  <h2>Forms</h2>
  <form action="/search" method="get">
    <label for="q">Search term</label>
    <input id="q" name="q" type="text">
    <button type="submit">Search</button>
  </form>
  <a href="https://example.com" target="_blank" rel="noopener">External link</a>
</body>
</html>`

// BadPage violates most checks: no doctype, no lang, skipped headings,
// deprecated tags, unlabelled fields, alt-less images, unsafe _blank,
// mixed-content references.
const BadPage = `<html>
<head>
  <title>x</title>
</head>
<body>
  <h1>Top</h1>
  <h4>Skipped straight to four</h4>
  <center><font size="4">Deprecated layout</font></center>
  <marquee>Still scrolling in this decade</marquee>
  <img src="http://insecure.example/banner.png">
  <img src="/photo.jpg">
  <script src="http://insecure.example/app.js"></script>
  <form action="/submit" method="post">
    <input type="text" name="who">
    <input type="email" name="where">
    <input type="submit">
  </form>
  <a href="/out" target="_blank">Unsafe new tab</a>
</body>
</html>`

// CookiePage is otherwise sound so cookie flags dominate its security
// score.
const CookiePage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta name="description" content="Demo page whose response sets one hardened cookie and one cookie without Secure or HttpOnly flags.">
  <title>Cookie flag demo page</title>
  <link rel="icon" href="/favicon.ico">
</head>
<body>
  <h1>Cookies</h1>
  <p>This response sets a hardened session cookie and a bare preferences cookie.</p>
</body>
</html>`
