package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

// staticRoot is static/ with the prefix stripped
var staticRoot = mustSub(staticFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded %s: %v", dir, err))
	}
	return sub
}

// ListEmbeddedFiles lists the files served below /static/
func ListEmbeddedFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(staticFiles, "static", func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, p)
		}
		return err
	})
	return files, err
}

// EmbeddedStaticHandler serves files from the embedded static directory.
// Directories are never listed.
func EmbeddedStaticHandler() gin.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticRoot))
	return func(c *gin.Context) {
		name := path.Clean(c.Param("filepath"))
		if name == "/" || name == "." {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		if info, err := fs.Stat(staticRoot, name[1:]); err != nil || info.IsDir() {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Request.URL.Path = name
		c.Header("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}

// pageTemplates holds base.html combined with each page template, parsed on first use
var pageTemplates sync.Map // page name -> *template.Template

// pageTemplate returns base.html with the "content" block of the named page
func pageTemplate(name string) (*template.Template, error) {
	if t, ok := pageTemplates.Load(name); ok {
		return t.(*template.Template), nil
	}
	t, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFiles,
		"templates/base.html", "templates/"+name)
	if err != nil {
		return nil, err
	}
	actual, _ := pageTemplates.LoadOrStore(name, t)
	return actual.(*template.Template), nil
}
