// Package config loads typed configuration from environment variables.
//
// Fields are described with github.com/caarlos0/env/v11 struct tags; dotenv
// files are read with github.com/joho/godotenv. Each struct type is parsed
// once per process and cached, so packages can call Load for their own Config
// without coordinating:
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Tests that change the environment call Reset between loads.
package config
