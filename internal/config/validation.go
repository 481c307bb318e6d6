package config

import "errors"

func (c *BrokerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("broker host cannot be empty")
	}
	if c.Port <= 0 {
		return errors.New("broker port must be positive")
	}
	if c.VirtualHost == "" {
		return errors.New("broker virtual host cannot be empty")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("storage endpoint cannot be empty")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("storage credentials must be supplied")
	}
	if c.Bucket == "" {
		return errors.New("storage bucket cannot be empty")
	}
	return nil
}

func (c *SearchConfig) Validate() error {
	if c.Host == "" {
		return errors.New("search host cannot be empty")
	}
	if c.Index == "" {
		return errors.New("search index cannot be empty")
	}
	return nil
}

func (c *ConverterConfig) Validate() error {
	if c.Binary == "" {
		return errors.New("converter binary cannot be empty")
	}
	if c.DPI <= 0 {
		return errors.New("converter dpi must be positive")
	}
	if c.Format == "" {
		return errors.New("converter format cannot be empty")
	}
	return nil
}

func (c *ConsumerConfig) Validate() error {
	if c.Prefetch <= 0 {
		return errors.New("consumer prefetch must be greater than zero")
	}
	return nil
}
