package environment

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
)

// Production defines the prod environment
const Production = "prod"

// Staging defines the staging environment
const Staging = "staging"

// Dev defines the dev environment
const Dev = "dev"

// Environment holds the process configuration read from the .env file
type Environment struct {
	Environment   string `mapstructure:"APP_ENV"`
	Cors          string `mapstructure:"CORS"`
	Port          string `mapstructure:"PORT"`
	Database      string `mapstructure:"DATABASE"`
	DatabaseUrl   string `mapstructure:"DATABASE_URL"`
	Redis         string `mapstructure:"REDIS"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	SchedulerKey  string `mapstructure:"SCHEDULER_KEY"`
}

var Global Environment

// Initialize reads the .env file into the Global environment, falling back to
// process environment variables when the file is absent
func Initialize() {
	data, err := godotenv.Read(".env")
	if err != nil {
		data = map[string]string{
			"APP_ENV":        os.Getenv("APP_ENV"),
			"CORS":           os.Getenv("CORS"),
			"PORT":           os.Getenv("PORT"),
			"DATABASE":       os.Getenv("DATABASE"),
			"DATABASE_URL":   os.Getenv("DATABASE_URL"),
			"REDIS":          os.Getenv("REDIS"),
			"REDIS_PASSWORD": os.Getenv("REDIS_PASSWORD"),
			"SCHEDULER_KEY":  os.Getenv("SCHEDULER_KEY"),
		}
	}

	err = mapstructure.Decode(data, &Global)
	if err != nil {
		panic(err)
	}
}
