package jwtgin

// Option defines a functional option for configuring the middleware
type Option func(*config)

// WithContextKey sets the gin.Context key the principal is stored under.
func WithContextKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.contextKey = key
		}
	}
}
