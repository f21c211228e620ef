package model

// DateClicks количество кликов за один календарный день (UTC).
type DateClicks struct {
	Date   string `json:"date"` // формат "2006-01-02"
	Clicks int    `json:"clicks"`
}

// NameValue пара "категория — количество" для разбивок сводки.
type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AnalyticsSummary производная сводка по кликам одной ссылки.
// Не хранится: пересчитывается из журнала кликов при каждом запросе.
//
// Разбивки по устройству/стране/рефереру отсортированы по убыванию
// количества (при равенстве — по имени). Это сознательное отклонение
// от порядка первого появления: потребители читают нулевой элемент
// как «топ», поэтому порядок закреплён контрактом.
type AnalyticsSummary struct {
	TotalClicks      int          `json:"total_clicks"`
	ClicksByDate     []DateClicks `json:"clicks_by_date"` // по возрастанию даты
	ClicksByDevice   []NameValue  `json:"clicks_by_device"`
	ClicksByCountry  []NameValue  `json:"clicks_by_country"`
	ClicksByReferrer []NameValue  `json:"clicks_by_referrer"`
}
