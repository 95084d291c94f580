package device

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

// Client 设备后端 HTTP 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建设备后端客户端
func NewClient(baseURL string, timeout time.Duration, retryCount int, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) FetchSensorData(ctx context.Context, childID int64, deviceID string) (models.SensorReading, error) {
	target := deviceID
	if target == "" {
		target = strconv.FormatInt(childID, 10)
	}

	c.logger.Debug("Fetching sensor data",
		zap.Int64("child_id", childID),
		zap.String("device_id", deviceID),
	)

	var reading models.SensorReading
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", target).
		SetResult(&reading).
		Get("/api/sensors/{id}")
	if err != nil {
		return models.SensorReading{}, fmt.Errorf("failed to fetch sensor data: %w", err)
	}
	if resp.IsError() {
		return models.SensorReading{}, fmt.Errorf("device API returned %d for sensor data", resp.StatusCode())
	}
	if reading.DeviceID == "" {
		reading.DeviceID = deviceID
	}
	return reading, nil
}

func (c *Client) SendCommand(ctx context.Context, deviceID, command string, payload any) error {
	c.logger.Info("Sending device command",
		zap.String("device_id", deviceID),
		zap.String("command", command),
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", deviceID).
		SetBody(CommandRequest{Command: command, Payload: payload}).
		Post("/api/devices/{id}/command")
	if err != nil {
		return fmt.Errorf("failed to send command %q: %w", command, err)
	}
	if resp.IsError() {
		return fmt.Errorf("device API returned %d for command %q", resp.StatusCode(), command)
	}
	return nil
}

func (c *Client) CheckFirmwareStatus(ctx context.Context, deviceID string) (models.FirmwareStatus, error) {
	var status models.FirmwareStatus
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", deviceID).
		SetResult(&status).
		Get("/api/devices/{id}/status")
	if err != nil {
		return models.FirmwareStatus{}, fmt.Errorf("failed to check firmware status: %w", err)
	}
	if resp.IsError() {
		return models.FirmwareStatus{}, fmt.Errorf("device API returned %d for firmware status", resp.StatusCode())
	}
	return status, nil
}
