// Package config provides configuration management for the GPU Test API.
//
// Configuration is loaded from environment variables using the env package,
// after an optional .env file. All values have defaults: with no
// configuration at all the service listens on 0.0.0.0:8000 and benchmarks
// 10000×10000 matrices on whatever accelerator it detects.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
