package http

import (
	stdhttp "net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// staticHandler serves the companion web app from root and falls back to
// index.html so client side routes resolve.
func staticHandler(root string) gin.HandlerFunc {
	dir := stdhttp.Dir(root)
	files := stdhttp.FileServer(dir)
	index := filepath.Join(root, "index.html")

	return func(c *gin.Context) {
		if c.Request.Method != stdhttp.MethodGet && c.Request.Method != stdhttp.MethodHead {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}

		if f, err := dir.Open(path.Clean("/" + c.Request.URL.Path)); err == nil {
			stat, statErr := f.Stat()
			_ = f.Close()
			if statErr == nil && !stat.IsDir() {
				files.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.File(index)
	}
}
