package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docsheet/internal/auth"
)

const authWaitLimit = 10 * time.Minute

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><body>
<p>{{.Message}}</p>
<script>
if (window.opener) { window.opener.postMessage({type: "docsheet-auth", ok: {{.OK}}}, "*"); }
window.close();
</script>
</body></html>`))

func (a *API) handleAuthStart(c *gin.Context) {
	pending, err := a.ws.BeginAuth(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), authWaitLimit)
		defer cancel()
		if _, err := pending.Wait(ctx); err != nil {
			if errors.Is(err, auth.ErrFlowCancelled) {
				a.logger.Info("auth.flow.cancelled")
				return
			}
			a.logger.Warn("auth.flow.unresolved", "error", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"url": pending.URL})
}

func (a *API) handleAuthCallback(c *gin.Context) {
	err := a.ws.CompleteAuth(c.Request.Context(), c.Query("state"), c.Query("code"), c.Query("error"))
	page := struct {
		OK      bool
		Message string
	}{OK: err == nil, Message: "Signed in. You can close this window."}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		page.Message = "Sign-in failed: " + err.Error()
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = callbackPage.Execute(c.Writer, page)
}

func (a *API) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": a.ws.Authenticated()})
}

func (a *API) handleSignOut(c *gin.Context) {
	a.ws.SignOut()
	c.Status(http.StatusNoContent)
}
