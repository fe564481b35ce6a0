package conf

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretFetcher returns the raw value of a named secret.
type SecretFetcher func(ctx context.Context, name string) (string, error)

// PgConnStr builds a postgres:// connection URL. Outside localhost the password
// comes from AWS Secrets Manager when a secret name is configured.
func (c *Config) PgConnStr(ctx context.Context, fetch SecretFetcher) (string, error) {
	pg := c.Postgres
	pw := pg.Password
	if pg.Host != "localhost" && pg.PasswordSecretName != "" {
		if fetch == nil {
			fetch = getSecretFromAWS
		}
		secretValue, err := fetch(ctx, pg.PasswordSecretName)
		if err != nil {
			return "", fmt.Errorf("failed to get postgres password from AWS: %w", err)
		}
		var secret struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(secretValue), &secret); err != nil {
			return "", fmt.Errorf("failed to parse postgres password secret: %w", err)
		}
		pw = secret.Password
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pg.User, pw),
		Host:     net.JoinHostPort(pg.Host, pg.Port),
		Path:     "/" + pg.DB,
		RawQuery: url.Values{"sslmode": {pg.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

func getSecretFromAWS(ctx context.Context, secretName string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	svc := secretsmanager.NewFromConfig(cfg)
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := svc.GetSecretValue(ctx, input)
	if err != nil {
		return "", err
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretName)
	}
	return *result.SecretString, nil
}
