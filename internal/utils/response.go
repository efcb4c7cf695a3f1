package utils

import "github.com/gin-gonic/gin"

// Error writes the uniform error body: {"error": <message>}.
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"error": msg,
	})
}
