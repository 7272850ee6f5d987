package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	apperrors "veriface.io/application/appErrors"
	"veriface.io/infrastructure/biometric"
	"veriface.io/infrastructure/logger"
	middlewares "veriface.io/infrastructure/middleware"
	ratelimit "veriface.io/infrastructure/ratelimit"
	webRoutev1 "veriface.io/infrastructure/routes/ginRouter/web/v1"
	server_response "veriface.io/infrastructure/serverResponse"
	startup "veriface.io/infrastructure/startUp"
)

type ginServer struct{}

func (s *ginServer) Start() {
	err := godotenv.Load()
	if err != nil {
		logger.Info("error loading env variables")
	}

	startup.StartServices()
	defer startup.CleanUpServices()

	server := gin.Default()
	origins := []string{}
	if os.Getenv("GIN_MODE") == "debug" {
		origins = append(origins, "http://localhost:5174")
	} else if os.Getenv("GIN_MODE") == "release" {
		origins = append(origins, "https://veriface.io", "https://www.veriface.io")
	}
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Device-Id", "User-Agent"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	server.Use(cors.New(corsConfig))
	server.Use(ratelimit.TokenBucketPerIP())
	server.MaxMultipartMemory = 15 << 20

	routerV1 := server.Group("/api").Group("/v1")
	routerV1.Use(middlewares.UserAgentMiddleware())
	{
		webRoutev1.VerificationRouter(routerV1)
	}

	server.GET("/ping", func(ctx *gin.Context) {
		server_response.Responder.Respond(ctx, http.StatusOK, "pong!", nil, nil, nil)
	})

	server.GET("/health", func(ctx *gin.Context) {
		if biometric.Service != nil && biometric.Service.IsHealthy() {
			server_response.Responder.Respond(ctx, http.StatusOK, "healthy", biometric.Service.Stats(), nil, nil)
			return
		}
		server_response.Responder.Respond(ctx, http.StatusServiceUnavailable, "unhealthy", nil, nil, nil)
	})

	server.NoRoute(func(ctx *gin.Context) {
		apperrors.NotFoundError(ctx, fmt.Sprintf("%s %s does not exist", ctx.Request.Method, ctx.Request.URL))
	})

	gin_mode := os.Getenv("GIN_MODE")
	port := os.Getenv("PORT")
	if gin_mode == "debug" || gin_mode == "release" {
		logger.Info(fmt.Sprintf("Server starting on PORT %s", port))
		server.Run(fmt.Sprintf(":%s", port))
	} else {
		panic(fmt.Sprintf("invalid gin mode used - %s", gin_mode))
	}
}
