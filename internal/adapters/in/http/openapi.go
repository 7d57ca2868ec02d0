package http

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openapiYAML []byte

// GetSwagger parses the embedded API description.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, err
	}
	if err = doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	return doc, nil
}

// swaggerDoc serves the embedded description to echo-swagger as JSON.
type swaggerDoc struct {
	json string
}

func (d swaggerDoc) ReadDoc() string {
	return d.json
}

var registerSwagger sync.Once

// RegisterSwaggerDoc makes doc available to echoSwagger.WrapHandler. swag
// panics on a second registration, so only the first call takes effect.
func RegisterSwaggerDoc(doc *openapi3.T) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	registerSwagger.Do(func() {
		swag.Register(swag.Name, swaggerDoc{json: string(data)})
	})
	return nil
}

// OapiRequestValidator rejects requests under basePath that do not match
// doc with 400. Other paths, like /health and /swagger, pass through.
// Security is checked by the bearer middleware, so authentication schemes
// are skipped here.
func OapiRequestValidator(doc *openapi3.T, basePath string) (echo.MiddlewareFunc, error) {
	routed := *doc
	routed.Servers = nil
	router, err := legacy.NewRouter(&routed)
	if err != nil {
		return nil, err
	}
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, basePath+"/") {
				return next(c)
			}

			routedReq := req.Clone(req.Context())
			routedReq.URL.Path = strings.TrimPrefix(req.URL.Path, basePath)
			route, pathParams, err := router.FindRoute(routedReq)
			if err != nil {
				switch {
				case isRouteError(err, routers.ErrPathNotFound):
					return c.JSON(http.StatusNotFound, Error{Code: "NOT_FOUND", Message: err.Error()})
				case isRouteError(err, routers.ErrMethodNotAllowed):
					return c.JSON(http.StatusMethodNotAllowed, Error{Code: "METHOD_NOT_ALLOWED", Message: err.Error()})
				default:
					return c.JSON(http.StatusBadRequest, Error{Code: "INVALID_REQUEST", Message: err.Error()})
				}
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    routedReq,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			err = openapi3filter.ValidateRequest(req.Context(), input)
			// the validator consumed the body and left a rewound copy on routedReq
			req.Body = routedReq.Body
			if err != nil {
				return c.JSON(http.StatusBadRequest, Error{Code: "INVALID_REQUEST", Message: firstLine(err.Error())})
			}
			return next(c)
		}
	}, nil
}

func isRouteError(err, target error) bool {
	if errors.Is(err, target) {
		return true
	}
	var routeErr *routers.RouteError
	return errors.As(err, &routeErr) && routeErr.Reason == target.Error()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
