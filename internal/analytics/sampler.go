package analytics

import (
	"math/rand"
	"sync"

	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/util"
)

// Sampler поставляет метаданные клика, когда реальный запрос
// их не принёс. В проде сюда подставляется извлечение из заголовков,
// в демо — категориальное распределение.
type Sampler interface {
	Country() string
	City() string
	Device() model.Device
	Referrer() string
	UserAgent() string
}

// Демо-распределения повторяют наполнение дашборда.
var (
	demoCountries = []string{"USA", "UK", "DE", "FR", "JP", "BR"}
	demoDevices   = []model.Device{model.DeviceDesktop, model.DeviceMobile, model.DeviceTablet}
	demoReferrers = []string{"google.com", "twitter.com", "direct", "linkedin.com"}
)

// DemoSampler равновероятно выбирает из фиксированных пулов.
// Потокобезопасен: rand.Rand закрыт мьютексом.
type DemoSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDemoSampler создаёт сэмплер. rng == nil — собственный источник.
func NewDemoSampler(rng *rand.Rand) *DemoSampler {
	if rng == nil {
		rng = util.NewRand()
	}
	return &DemoSampler{rng: rng}
}

func (s *DemoSampler) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *DemoSampler) Country() string {
	return demoCountries[s.pick(len(demoCountries))]
}

func (s *DemoSampler) City() string { return "Unknown" }

func (s *DemoSampler) Device() model.Device {
	return demoDevices[s.pick(len(demoDevices))]
}

func (s *DemoSampler) Referrer() string {
	return demoReferrers[s.pick(len(demoReferrers))]
}

func (s *DemoSampler) UserAgent() string { return "Mozilla/5.0..." }
