package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const (
	CapabilityRead     = "audit.read"
	CapabilityRun      = "audit.run"
	CapabilityEvidence = "audit.evidence"
	CapabilityIndex    = "audit.index"
)

// RoleManager maps profile roles to capabilities and exposes Gin middleware.
type RoleManager struct {
	rolesPath string
	roles     map[string]*Profile
}

// Profile represents a parsed role with capability map.
type Profile struct {
	ID           string
	Name         string
	Capabilities map[string]bool
}

// defaultRoles applies when no roles file is configured.
var defaultRoles = map[string]*Profile{
	"admin": {
		ID:   "admin",
		Name: "Administrator",
		Capabilities: map[string]bool{
			"audit.value": true, CapabilityRead: true, CapabilityRun: true, CapabilityEvidence: true, CapabilityIndex: true,
		},
	},
	"auditor": {
		ID:   "auditor",
		Name: "Auditor",
		Capabilities: map[string]bool{
			"audit.value": true, CapabilityRead: true, CapabilityRun: true, CapabilityEvidence: true,
		},
	},
	"viewer": {
		ID:           "viewer",
		Name:         "Viewer",
		Capabilities: map[string]bool{"audit.value": true, CapabilityRead: true},
	},
}

// NewRoleManager loads roles from rolesPath, or uses the built-in roles when
// the path is empty.
func NewRoleManager(rolesPath string) (*RoleManager, error) {
	m := &RoleManager{roles: defaultRoles}
	if rolesPath == "" {
		logs.Log(fmt.Sprintf("[AUTHZ] using %d built-in roles", len(m.roles)))
		return m, nil
	}

	rolesAbs, err := filepath.Abs(rolesPath)
	if err != nil {
		return nil, fmt.Errorf("roles path: %w", err)
	}
	m.rolesPath = rolesAbs

	if err := m.reloadRoles(); err != nil {
		return nil, err
	}

	return m, nil
}

// RequireCapabilities returns a middleware that enforces capability checks
// on the role resolved by ResolveTenant.
func (m *RoleManager) RequireCapabilities(capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(capabilities) == 0 {
			c.Next()
			return
		}

		role := Role(c)
		if role == "" {
			logs.Log(fmt.Sprintf("[AUTHZ][WARN] missing role on %s %s", c.Request.Method, c.Request.RequestURI))
			c.AbortWithStatusJSON(http.StatusForbidden, structs.Map(models.StatusForbidden{
				Code:    http.StatusForbidden,
				Message: "authorization failed",
				Data:    nil,
			}))
			return
		}

		ok, missing := m.CheckCapabilities(role, capabilities)
		if !ok {
			logs.Log(fmt.Sprintf("[AUTHZ][DENIED] %s (role %s) missing capability %s", UserID(c), role, missing))
			c.AbortWithStatusJSON(http.StatusForbidden, structs.Map(models.StatusForbidden{
				Code:    http.StatusForbidden,
				Message: "missing capability",
				Data:    missing,
			}))
			return
		}

		c.Next()
	}
}

// CheckCapabilities verifies that the role has every capability.
func (m *RoleManager) CheckCapabilities(roleID string, required []string) (bool, string) {
	role, ok := m.roles[roleID]
	if !ok {
		return false, "role"
	}

	for _, capability := range required {
		if !role.Capabilities[capability] {
			return false, capability
		}
	}

	return true, ""
}

func (m *RoleManager) reloadRoles() error {
	data, err := os.ReadFile(m.rolesPath)
	if err != nil {
		return fmt.Errorf("read roles: %w", err)
	}

	raw := make(map[string]*rawRole)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse roles: %w", err)
	}

	roles := make(map[string]*Profile)
	for key, rr := range raw {
		roleID := rr.ID
		if roleID == "" {
			roleID = key
		}

		if roleID == "" {
			continue
		}

		capMap := make(map[string]bool)
		for macroName, macro := range rr.MacroPermissions {
			capMap[macroName+".value"] = macro.Value
			for _, permission := range macro.Permissions {
				// a disabled macro disables all of its permissions
				capMap[fmt.Sprintf("%s.%s", macroName, permission.Name)] = macro.Value && permission.Value
			}
		}

		roles[roleID] = &Profile{
			ID:           roleID,
			Name:         rr.Name,
			Capabilities: capMap,
		}
	}

	m.roles = roles
	logs.Log(fmt.Sprintf("[AUTHZ] loaded %d roles", len(roles)))
	return nil
}

type rawRole struct {
	ID               string                         `json:"id"`
	Name             string                         `json:"name"`
	MacroPermissions map[string]*rawMacroPermission `json:"macro_permissions"`
}

type rawMacroPermission struct {
	Value       bool             `json:"value"`
	Permissions []*rawPermission `json:"permissions"`
}

type rawPermission struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}
