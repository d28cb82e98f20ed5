package mqttbridge

import "errors"

var (
	ErrNotConnected     = errors.New("mqttbridge: client not connected")
	ErrConnectionFailed = errors.New("mqttbridge: connection failed")
	ErrPublishFailed    = errors.New("mqttbridge: publish failed")
	ErrInvalidTopic     = errors.New("mqttbridge: topic cannot be empty")
	ErrInvalidQoS       = errors.New("mqttbridge: invalid QoS level (must be 0, 1, or 2)")
)
