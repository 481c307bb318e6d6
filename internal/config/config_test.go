package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "localhost", cfg.Broker.Host)
	assert.Equal(t, 5672, cfg.Broker.Port)
	assert.Equal(t, "/", cfg.Broker.VirtualHost)
	assert.Equal(t, "documents", cfg.Storage.Bucket)
	assert.Equal(t, 300, cfg.Converter.DPI)
	assert.Equal(t, "tiff", cfg.Converter.Format)
	assert.Equal(t, 1, cfg.Consumer.Prefetch)
	assert.Equal(t, "eng", cfg.OCR.Language)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RABBITMQ_HOST", "broker.internal")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CONVERTER_DPI", "150")
	t.Setenv("CONSUMER_PREFETCH", "4")

	cfg := Load()

	assert.Equal(t, "broker.internal", cfg.Broker.Host)
	assert.Equal(t, 5673, cfg.Broker.Port)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 150, cfg.Converter.DPI)
	assert.Equal(t, 4, cfg.Consumer.Prefetch)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("RABBITMQ_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5672, cfg.Broker.Port)
}

func TestValidation(t *testing.T) {
	broker := BrokerConfig{Host: "localhost", Port: 5672, VirtualHost: "/"}
	require.NoError(t, broker.Validate())

	broker.Host = ""
	assert.Error(t, broker.Validate())

	storage := StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "documents"}
	require.NoError(t, storage.Validate())

	storage.SecretKey = ""
	assert.Error(t, storage.Validate())

	converter := ConverterConfig{Binary: "convert", DPI: 300, Format: "tiff"}
	require.NoError(t, converter.Validate())

	converter.DPI = 0
	assert.Error(t, converter.Validate())

	consumer := ConsumerConfig{Prefetch: 1}
	require.NoError(t, consumer.Validate())

	consumer.Prefetch = 0
	assert.Error(t, consumer.Validate())
}
