package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const viewerPage = `<!DOCTYPE html>
<html>
<head><title>Treasury Bill Auctions</title></head>
<body style="margin:0;background:#1e1e1e;display:flex;justify-content:center">
<img src="/chart.png" alt="Treasury Bill Discounted Rate by Term Length" style="max-width:100%">
</body>
</html>`

// newViewerRouter serves the rendered chart until the process is interrupted.
func newViewerRouter(png []byte) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(viewerPage))
	})

	router.GET("/chart.png", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", png)
	})

	return router
}
