// Package router mounts the posting API on a gin engine.
package router

import (
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Routes registers one area of the API on the versioned group
type Routes func(api *gin.RouterGroup)

// Router serves the health endpoints at the root and everything else under
// /api/<version>, behind the API middleware.
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	system     *handler.SystemHandler
	routes     []Routes
}

type Option func(*Router)

// WithAPIVersion replaces the default "v1" prefix
func WithAPIVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// WithAPIMiddleware runs mw on /api routes only, so health endpoints stay reachable
// without tenant headers.
func WithAPIMiddleware(mw ...gin.HandlerFunc) Option {
	return func(r *Router) { r.middleware = append(r.middleware, mw...) }
}

func WithSystemHandler(h *handler.SystemHandler) Option {
	return func(r *Router) { r.system = h }
}

func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(routes ...Routes) *Router {
	r.routes = append(r.routes, routes...)
	return r
}

// Setup mounts everything registered so far
func (r *Router) Setup() {
	api := r.engine.Group("/api/"+r.version, r.middleware...)
	if r.system != nil {
		r.engine.GET("/health", r.system.Health)
		r.engine.GET("/ready", r.system.Ready)
		api.GET("/system/info", r.system.GetSystemInfo)
	}
	for _, mount := range r.routes {
		mount(api)
	}
}
