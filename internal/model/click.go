package model

import "time"

// Device категория устройства, извлечённая из метаданных запроса.
type Device string

const (
	DeviceDesktop Device = "Desktop"
	DeviceMobile  Device = "Mobile"
	DeviceTablet  Device = "Tablet"
	DeviceOther   Device = "Other"
)

// ClickEvent представляет один факт перехода по короткой ссылке.
// Записи только добавляются; после записи не изменяются и не удаляются.
type ClickEvent struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"link_id"`
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Device    Device    `json:"device"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"user_agent"`
}

// ClickOverrides переопределяет метаданные клика, когда они известны
// из реального запроса (иначе значения берутся из сэмплера).
type ClickOverrides struct {
	Country   string
	City      string
	Device    Device
	Referrer  string
	UserAgent string
}
