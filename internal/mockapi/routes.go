package mockapi

// routes sets up the routes for the HTTP server.
func (s *Server) routes() {
	v1 := s.router.Group("/api/v1")

	v1.GET("/assets", s.listAssets)
	v1.GET("/assets/:id", s.getAsset)

	authed := v1.Group("", s.authMiddleware())
	authed.POST("/orders", s.createOrder)
	authed.POST("/orders/:id/cancel", s.cancelOrder)
	authed.POST("/orders/:id/complete", s.completeOrder)
	authed.POST("/finance/:kind", s.finance)
}
