package site

// DefaultConcurrency bounds parallel file loads.
const DefaultConcurrency = 4

// ClientOptions configures a Client.
type ClientOptions struct {
	Concurrency int
}

// ClientOption is a functional option for configuring NewClient.
type ClientOption func(*ClientOptions)

func defaultClientOptions() *ClientOptions {
	return &ClientOptions{Concurrency: DefaultConcurrency}
}

// WithConcurrency sets the number of parallel file loads.
func WithConcurrency(n int) ClientOption {
	return func(o *ClientOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}
