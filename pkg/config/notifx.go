package config

// NotifxConfig configures outgoing email.
type NotifxConfig struct {
	// Provider is "console" or "ses".
	Provider    string `env:"PROVIDER" envDefault:"console"`
	FromAddress string `env:"FROM_ADDRESS" envDefault:"noreply@lingua.dev"`
	FromName    string `env:"FROM_NAME" envDefault:"Lingua"`
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
}
