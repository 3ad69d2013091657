package settings

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Studio-facing settings live as keys in the .env file so they survive
// restarts without needing their own table. Only whitelisted keys are ever
// read or written; nothing here can touch credentials.
var allowedKeys = []string{
	"STUDIO_NAME",
	"STUDIO_EMAIL",
	"STUDIO_PHONE",
	"STUDIO_ADDRESS",
	"STUDIO_CURRENCY",
	"STUDIO_TIMEZONE",
}

type Handler struct {
	EnvPath string
}

func NewHandler(envPath string) *Handler {
	if envPath == "" {
		envPath = ".env"
	}
	return &Handler{EnvPath: envPath}
}

func isAllowed(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (h *Handler) Get(c *gin.Context) {
	out := gin.H{}
	for _, key := range allowedKeys {
		out[key] = os.Getenv(key)
	}
	c.JSON(http.StatusOK, out)
}

// Update rewrites the whitelisted keys in the .env file in place, appending
// keys that are not present yet, and mirrors them into the process
// environment so the change is visible without a restart.
func (h *Handler) Update(c *gin.Context) {
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	for key := range body {
		if !isAllowed(key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown setting: " + key})
			return
		}
	}

	content := ""
	if data, err := os.ReadFile(h.EnvPath); err == nil {
		content = string(data)
	}

	for key, value := range body {
		content = upsertEnvLine(content, key, value)
		os.Setenv(key, value)
	}

	if err := os.WriteFile(h.EnvPath, []byte(content), 0600); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

func upsertEnvLine(content, key, value string) string {
	line := fmt.Sprintf("%s=%q", key, value)
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `=.*$`)
	if re.MatchString(content) {
		return re.ReplaceAllString(content, line)
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + line + "\n"
}
