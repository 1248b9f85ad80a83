package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler 定义API处理器接口
type APIHandler interface {
	CreateImport(c *gin.Context)
	GetImport(c *gin.Context)
	ListImports(c *gin.Context)
}

// InitRouter 初始化路由配置
func InitRouter(engine *gin.Engine, handler APIHandler) *gin.RouterGroup {
	// API路由组
	apiGroup := engine.Group("/api/v1")
	if handler != nil {
		imports := apiGroup.Group("/imports")
		{
			imports.POST("", handler.CreateImport)
			imports.GET("", handler.ListImports)
			imports.GET("/:id", handler.GetImport)
			zap.S().Info("路由注册成功: POST|GET /api/v1/imports, GET /api/v1/imports/:id")
		}
	} else {
		zap.S().Warn("Handler为nil，路由未注册")
	}

	return apiGroup
}
