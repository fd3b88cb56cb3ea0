package handler

import "html/template"

var watchTemplate = template.Must(template.New("watch").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
  <title>{{.Title}}</title>
  <link rel="alternate" type="application/json+oembed" href="{{.OEmbedURL}}">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta name="theme-color" content="#435cda">
  <meta property="og:title" content="{{.Title}}">
  <meta property="og:type" content="website">
  <meta property="og:url" content="{{.PageURL}}">
  <meta property="og:image" content="{{.ImageURL}}">
  <meta property="og:image:width" content="{{.Width}}">
  <meta property="og:image:height" content="{{.Height}}">
  <meta name="twitter:card" content="player">
  <meta name="twitter:player" content="{{.PlayerURL}}">
  <meta name="twitter:player:width" content="{{.Width}}">
  <meta name="twitter:player:height" content="{{.Height}}">
  <meta name="twitter:title" content="{{.Title}}">
  <meta name="twitter:image" content="{{.ImageURL}}">
  <style>
    body { margin:0; background:#0b0b0b; color:#fff; display:grid; place-items:center; min-height:100vh; }
    .container { width:100%; max-width:{{.Width}}px; padding:16px; }
    video { width:100%; height:auto; background:#000; }
  </style>
</head>
<body>
  <div class="container">
    <h3 style="font-family: system-ui, sans-serif; font-weight: 600;">{{.Title}}</h3>
    <video id="video" controls autoplay playsinline src="{{.StreamURL}}"></video>
    <div style="margin-top:12px">
      <a href="{{.StreamURL}}?v={{.CacheBust}}" style="color:#9ecbff;text-decoration:none">Open streaming</a>
    </div>
  </div>
</body>
</html>
`))

var playerTemplate = template.Must(template.New("player").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>html,body{margin:0;padding:0;background:#000}#wrap{display:grid;place-items:center;min-height:100vh}video{width:100%;height:auto;background:#000;max-width:{{.Width}}px}</style>
</head>
<body>
  <div id="wrap"><video src="{{.StreamURL}}" controls playsinline autoplay></video></div>
</body>
</html>
`))

type pageData struct {
	Title     string
	PageURL   string
	OEmbedURL string
	ImageURL  string
	PlayerURL string
	StreamURL string
	Width     int
	Height    int
	CacheBust int64
}
