package mail

import (
	"fmt"
	"strings"
)

// Config represents mailer config options provided by the user, e.g. as
// a block of a YAML application config. Not meant to be used for
// sending email without validation via CheckAndSetDefaults or Mailer.
type Config struct {
	RelayAddress         string
	Username             string
	Password             string
	SkipCertVerification bool
	FromAddress          string
	ToAddresses          []string
	CcAddresses          []string
	BccAddresses         []string
}

// UnmarshalYAML parses a user-provided YAML configuration, returning
// any parsing errors. Validation is left to CheckAndSetDefaults so the
// caller can distinguish malformed YAML from an unusable configuration.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := struct {
		RelayAddress         string   `yaml:"smtpServerAddress"`
		Username             string   `yaml:"username"`
		Password             string   `yaml:"password"`
		SkipCertVerification bool     `yaml:"skipCertVerification"`
		FromAddress          string   `yaml:"fromAddress"`
		ToAddresses          []string `yaml:"toAddresses"`
		CcAddresses          []string `yaml:"ccAddresses"`
		BccAddresses         []string `yaml:"bccAddresses"`
	}{}

	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the email settings: %v", err)
	}

	c.RelayAddress = v.RelayAddress
	c.Username = v.Username
	c.Password = v.Password
	c.SkipCertVerification = v.SkipCertVerification
	c.FromAddress = v.FromAddress
	c.ToAddresses = v.ToAddresses
	c.CcAddresses = v.CcAddresses
	c.BccAddresses = v.BccAddresses
	return nil
}

// CheckAndSetDefaults validates c and either returns a copy of c ready
// to build a Mailer from or returns an error due to an invalid
// configuration.
func (c *Config) CheckAndSetDefaults() (Config, error) {
	out := *c

	if strings.TrimSpace(out.RelayAddress) == "" {
		return Config{}, fmt.Errorf(
			"%w: user-provided config does not include an SMTP relay address",
			ErrInvalidConfig,
		)
	}
	if (out.Username == "") != (out.Password == "") {
		return Config{}, fmt.Errorf(
			"%w: username and password must be provided together",
			ErrInvalidConfig,
		)
	}
	return out, nil
}

// Mailer validates c and builds the configured Mailer, including any
// default sender and recipient lists.
func (c Config) Mailer() (*Mailer, error) {
	cc, err := c.CheckAndSetDefaults()
	if err != nil {
		return nil, err
	}

	b := NewBuilder(cc.RelayAddress)
	if cc.Username != "" {
		b.Auth(cc.Username, cc.Password)
	}
	b.SkipCertVerification(cc.SkipCertVerification)

	if cc.FromAddress != "" {
		if err := b.From(cc.FromAddress); err != nil {
			return nil, fmt.Errorf("fromAddress: %w", err)
		}
	}
	for _, a := range cc.ToAddresses {
		if err := b.AddTo(a); err != nil {
			return nil, fmt.Errorf("toAddresses: %w", err)
		}
	}
	for _, a := range cc.CcAddresses {
		if err := b.AddCc(a); err != nil {
			return nil, fmt.Errorf("ccAddresses: %w", err)
		}
	}
	for _, a := range cc.BccAddresses {
		if err := b.AddBcc(a); err != nil {
			return nil, fmt.Errorf("bccAddresses: %w", err)
		}
	}
	return b.Build()
}
