package render

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/wzyjerry/stray-saver/internal/session"
)

// HTML renders a page with the fields every layout needs: the current
// user for navigation and the CSRF form field.
func HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if s := session.FromContext(c); s != nil {
		data["User"] = s
	}
	// empty unless csrf.Protect wraps the engine
	data["CSRFField"] = csrf.TemplateField(c.Request)
	c.HTML(status, name, data)
}

// Error renders the error page.
func Error(c *gin.Context, status int, msg string) {
	HTML(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Heading": http.StatusText(status),
		"Error":   msg,
	})
}
