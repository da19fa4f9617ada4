package handlers

import (
	"github.com/gin-gonic/gin"
)

// Every collection route answers with the same envelope:
// {success, data} on success, {success:false, errors|message} otherwise.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondOK(c *gin.Context, status int) {
	c.JSON(status, gin.H{"success": true})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondErrors(c *gin.Context, status int, errs []string) {
	c.JSON(status, gin.H{"success": false, "errors": errs})
}
