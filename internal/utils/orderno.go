package utils

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateOrderNo возвращает внешний номер ордера: дата + случайный суффикс.
// Номер неизменяем после присвоения и показывается обеим сторонам сделки.
func GenerateOrderNo() (string, error) {
	suffix, err := gonanoid.Generate("0123456789", 10)
	if err != nil {
		return "", err
	}
	return time.Now().Format("20060102") + suffix, nil
}
