package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

const BasePath = "/api/v1"

type RouterConfig struct {
	JWTSecret []byte
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the echo instance serving the order API under BasePath
// together with /health, /metrics and the swagger UI.
func NewRouter(server ServerInterface, cfg RouterConfig) (*echo.Echo, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validator, err := OapiRequestValidator(doc, BasePath)
	if err != nil {
		return nil, err
	}
	if err = RegisterSwaggerDoc(doc); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(BearerAuth(cfg.JWTSecret, BasePath))
	e.Use(validator)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	RegisterHandlersWithBaseURL(e, server, BasePath)
	return e, nil
}
