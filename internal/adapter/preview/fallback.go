package preview

import (
	"fmt"
	"html"
	"strings"
)

// Hand-built HTML used when the embedded templates fail to parse. Output is
// functionally identical to the template path.

const albumStyle = `<style>
    body {
        font-family: Arial, sans-serif;
        max-width: 1200px;
        margin: 0 auto;
        padding: 20px;
        background-color: #f5f5f5;
    }
    h1 {
        text-align: center;
        color: #333;
    }
    .gallery {
        display: grid;
        grid-template-columns: repeat(auto-fill, minmax(300px, 1fr));
        grid-gap: 15px;
        margin-top: 20px;
    }
    .gallery img {
        width: 100%;
        height: auto;
        border-radius: 5px;
        box-shadow: 0 2px 5px rgba(0, 0, 0, 0.1);
        transition: transform 0.3s ease;
    }
    .gallery img:hover {
        transform: scale(1.03);
    }
    .info {
        text-align: center;
        margin-bottom: 20px;
        color: #666;
    }
    .desc {
        margin-top: 15px;
        padding: 10px;
        background-color: #fff;
        border-radius: 5px;
        box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
    }
</style>`

const mixedStyle = `<style>
    body {
        font-family: Arial, sans-serif;
        max-width: 1200px;
        margin: 0 auto;
        padding: 20px;
        background-color: #f5f5f5;
    }
    h1, h2 {
        color: #333;
    }
    h1 {
        text-align: center;
    }
    .info {
        text-align: center;
        margin-bottom: 20px;
        color: #666;
    }
    .section {
        margin-top: 30px;
        padding: 15px;
        background-color: #fff;
        border-radius: 5px;
        box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
    }
    .gallery {
        display: grid;
        grid-template-columns: repeat(auto-fill, minmax(250px, 1fr));
        grid-gap: 15px;
        margin-top: 20px;
    }
    .gallery img {
        width: 100%;
        height: auto;
        border-radius: 5px;
        box-shadow: 0 2px 5px rgba(0, 0, 0, 0.1);
    }
    .media-item {
        margin: 10px 0;
        padding: 10px;
        background-color: #f9f9f9;
        border-radius: 5px;
    }
    .desc {
        margin-top: 15px;
        padding: 10px;
        background-color: #fff;
        border-radius: 5px;
        box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
    }
    video, audio {
        width: 100%;
        margin-top: 10px;
    }
    a {
        color: #0066cc;
        text-decoration: none;
    }
    a:hover {
        text-decoration: underline;
    }
</style>`

func fallbackAlbum(ctx *pageContext) string {
	var b strings.Builder

	name := html.EscapeString(ctx.Name)
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
%s
</head>
<body>
<h1>%s</h1>
<div class="info">
    <p>Platform: %s</p>
    <p>Author: %s</p>
    <p>Album contains %d images</p>
</div>`, name, albumStyle, name,
		html.EscapeString(ctx.Platform), html.EscapeString(ctx.Author), len(ctx.Images))

	if ctx.DescriptionHTML != "" {
		fmt.Fprintf(&b, "\n    <div class=\"desc\">%s</div>", ctx.DescriptionHTML)
	}

	b.WriteString("\n    <div class=\"gallery\">")
	for _, image := range ctx.Images {
		img := html.EscapeString(image)
		fmt.Fprintf(&b, "\n        <img src=%q alt=%q>", img, img)
	}
	b.WriteString("\n    </div>\n</body>\n</html>")

	return b.String()
}

func fallbackMixed(ctx *pageContext) string {
	var b strings.Builder

	name := html.EscapeString(ctx.Name)
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
%s
</head>
<body>
<h1>%s</h1>
<div class="info">
    <p>Platform: %s</p>
    <p>Author: %s</p>
</div>`, name, mixedStyle, name,
		html.EscapeString(ctx.Platform), html.EscapeString(ctx.Author))

	if ctx.DescriptionHTML != "" {
		fmt.Fprintf(&b, "\n    <div class=\"desc\">%s</div>", ctx.DescriptionHTML)
	}

	writePlayerSection(&b, "Videos", "video", "video/mp4", "Download Video", ctx.Videos)

	if len(ctx.Images) > 0 {
		fmt.Fprintf(&b, "\n    <div class=\"section\">\n        <h2>Images (%d)</h2>\n        <div class=\"gallery\">", len(ctx.Images))
		for _, image := range ctx.Images {
			img := html.EscapeString(image)
			fmt.Fprintf(&b, "\n            <a href=%q target=\"_blank\"><img src=%q alt=%q></a>", img, img, img)
		}
		b.WriteString("\n        </div>\n    </div>")
	}

	writePlayerSection(&b, "Audio", "audio", "audio/mpeg", "Download Audio", ctx.Audio)
	writePlayerSection(&b, "Music", "audio", "audio/mpeg", "Download Music", ctx.Music)

	b.WriteString("\n</body>\n</html>")

	return b.String()
}

func writePlayerSection(b *strings.Builder, title, tag, mimeType, linkText string, files []string) {
	if len(files) == 0 {
		return
	}

	fmt.Fprintf(b, "\n    <div class=\"section\">\n        <h2>%s (%d)</h2>", title, len(files))
	for _, file := range files {
		f := html.EscapeString(file)
		fmt.Fprintf(b, `
    <div class="media-item">
        <p>%s</p>
        <%s controls>
            <source src=%q type=%q>
            Your browser does not support the %s tag.
        </%s>
        <p><a href=%q download>%s</a></p>
    </div>`, f, tag, f, mimeType, tag, tag, f, linkText)
	}
	b.WriteString("\n    </div>")
}
