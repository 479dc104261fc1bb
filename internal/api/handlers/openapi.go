package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// resolveOpenAPIPath returns a readable path to openapi.yaml, checking common
// locations because tests change the working directory. PLANNER_OPENAPI_PATH
// wins when set.
func resolveOpenAPIPath() string {
	if p := os.Getenv("PLANNER_OPENAPI_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	candidates := []string{
		"api/openapi.yaml",
		filepath.FromSlash("../../api/openapi.yaml"),
		filepath.FromSlash("../../../api/openapi.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "api/openapi.yaml"
}

// GetOpenAPISpec serves the YAML contract, parsed once to reject a corrupt
// file instead of shipping it to the UI.
func GetOpenAPISpec(c *gin.Context) {
	data, err := os.ReadFile(resolveOpenAPIPath())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to load openapi.yaml"})
		return
	}
	var obj any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to parse openapi.yaml"})
		return
	}
	c.Data(http.StatusOK, "application/yaml", data)
}
