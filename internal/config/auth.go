package config

type Auth struct {
	JWTSecret string `env:"AUTH_JWT_SECRET,required"`
}
