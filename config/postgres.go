package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// SSMPrefix names the Parameter Store keys read in prod: <prefix>_HOST, <prefix>_USER, <prefix>_PASSWORD.
	SSMPrefix string `mapstructure:"ssm_prefix"`
}

// DSN builds the connection string. In prod the host and credentials come
// from AWS SSM; a parameter that cannot be read keeps the configured value.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password

	if env == "prod" && cfg.SSMPrefix != "" {
		if v := getParameterStoreValue(cfg.SSMPrefix+"_HOST", true); v != "" {
			host = v
		}
		if v := getParameterStoreValue(cfg.SSMPrefix+"_USER", true); v != "" {
			user = v
		}
		if v := getParameterStoreValue(cfg.SSMPrefix+"_PASSWORD", true); v != "" {
			password = v
		}
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, cfg.DBName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// AdminDSN targets the server's default "postgres" database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	admin := *cfg
	admin.DBName = "postgres"
	return admin.DSN(env)
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
