package render

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// Artifact file names inside the output directory.
const (
	HeatmapPNGFile    = "heatmap.png"
	HeatmapHTMLFile   = "heatmap.html"
	HeatmapJSONFile   = "heatmap.json"
	WordCloudSVGFile  = "word_cloud.svg"
	WordCloudHTMLFile = "word_cloud.html"
	WordCloudJSONFile = "word_cloud.json"
)

type pageData struct {
	Title string
	Src   string
	Stamp int64
}

// heatmapPage scrolls to the right edge (the most recent week) on load.
var heatmapPage = template.Must(template.New("heatmap").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body, html {
            margin: 0;
            padding: 0;
            width: 100%;
            height: 100%;
            background: transparent;
            overflow: hidden;
        }
        .container {
            width: 100%;
            height: 100%;
            overflow-x: auto;
            overflow-y: hidden;
            display: flex;
            align-items: center;
            scrollbar-width: thin;
        }
        img {
            height: 90%;
            width: auto;
            max-width: none;
            display: block;
            margin: 0 auto;
        }
        @media (max-width: 480px) {
            img {
                height: 80%;
            }
        }
    </style>
</head>
<body>
    <div class="container" id="scrollContainer">
        <img src="{{.Src}}?t={{.Stamp}}" alt="{{.Title}}">
    </div>
    <script>
        window.onload = function() {
            const container = document.getElementById('scrollContainer');
            container.scrollLeft = container.scrollWidth;
        };
    </script>
</body>
</html>
`))

var wordCloudPage = template.Must(template.New("wordcloud").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body, html {
            margin: 0;
            padding: 0;
            width: 100%;
            height: 100%;
            display: flex;
            justify-content: center;
            align-items: center;
            background: transparent;
        }
        img {
            max-width: 100%;
            max-height: 100%;
            object-fit: contain;
        }
    </style>
</head>
<body>
    <img src="{{.Src}}?t={{.Stamp}}" alt="{{.Title}}">
</body>
</html>
`))

// HeatmapPage writes the page embedding heatmap.png. stamp busts caches of
// the embedded image.
func HeatmapPage(w io.Writer, title string, stamp time.Time) error {
	if err := heatmapPage.Execute(w, pageData{Title: title, Src: HeatmapPNGFile, Stamp: stamp.Unix()}); err != nil {
		return fmt.Errorf("render heatmap page: %w", err)
	}
	return nil
}

// WordCloudPage writes the page embedding word_cloud.svg.
func WordCloudPage(w io.Writer, title string, stamp time.Time) error {
	if err := wordCloudPage.Execute(w, pageData{Title: title, Src: WordCloudSVGFile, Stamp: stamp.Unix()}); err != nil {
		return fmt.Errorf("render word cloud page: %w", err)
	}
	return nil
}
