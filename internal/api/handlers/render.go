package handlers

import (
	"log/slog"

	"control-acceso/internal/api/middleware"
	"control-acceso/internal/auth"
	"control-acceso/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// render adds the CSRF field and any pending flashes to data and renders the
// named template.
func render(c *gin.Context, status int, name string, data gin.H) {
	data["CSRFField"] = csrf.TemplateField(c.Request)
	if sc := middleware.CurrentSession(c); sc != nil {
		data["Flashes"] = sc.Flashes()
	}
	c.HTML(status, name, data)
}

// NotFound renders the 404 page.
func NotFound(c *gin.Context) {
	render(c, 404, "not_found.html", gin.H{})
}

// actorName is the display name carried by token, the name audit entries
// are recorded under. fallback is used when the token has none.
func actorName(token, fallback string) string {
	if claims, err := auth.DecodeToken(token); err == nil && claims.Nombre != "" {
		return claims.Nombre
	}
	return fallback
}

// logAudit logs an audit entry
func logAudit(c *gin.Context, actor string, role auth.Role, action, resource, resourceID string) {
	auditLog := &models.AuditLog{
		Actor:      actor,
		RoleName:   string(role),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	}
	if err := models.DB.WithContext(c.Request.Context()).Create(auditLog).Error; err != nil {
		slog.Warn("failed to write audit log", "action", action, "error", err)
	}
}
