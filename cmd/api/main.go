package main

import (
	"context"
	"net/http"

	_ "address-mapper/docs"
	"address-mapper/internal/config"
	"address-mapper/internal/geocoder"
	"address-mapper/internal/handler"
	"address-mapper/internal/logging"
	"address-mapper/internal/render"
	"address-mapper/internal/repository"
	"address-mapper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Address Mapper API
//	@version		1.0
//	@description	Geocodes uploaded address tables and renders them on a map.
//	@BasePath		/

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	if err := logging.Setup(config.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}

	provider, err := geocoder.New(config)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create geocoder")
	}

	// Optional geocode cache
	var cache service.GeoCodeCache
	if config.CacheEnabled {
		conn, err := pgxpool.New(context.Background(), config.DBSource)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot connect to db")
		}
		defer conn.Close()

		repo := repository.NewRepository(conn)
		if err := repo.CreateSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("cannot create cache schema")
		}
		cache = repo
	}

	// Initialize layers
	geoCodeService := service.NewGeoCodeService(provider, cache)
	pipeline := service.NewPipeline(geoCodeService, config.MapZoom)

	geoCodeHandler := handler.NewGeoCodeHandler(geoCodeService)
	uploadHandler := handler.NewUploadHandler(pipeline, render.NewLeaflet(), config.MaxUploadBytes)

	r := gin.Default()
	r.MaxMultipartMemory = config.MaxUploadBytes
	r.SetHTMLTemplate(handler.Templates())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	r.GET("/", uploadHandler.Index)
	r.POST("/upload", uploadHandler.Upload)
	r.POST("/api/upload", uploadHandler.UploadAPI)
	r.POST("/api/upload/stream", uploadHandler.UploadStream)
	r.GET("/geocode", geoCodeHandler.GeoCode)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Info().
		Str("address", config.ServerAddress).
		Str("provider", config.GeocoderProvider).
		Bool("cache", config.CacheEnabled).
		Msg("starting server")

	if err := r.Run(config.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
