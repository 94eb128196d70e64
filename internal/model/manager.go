package model

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// FeatureCount - размерность вектора фич, на которую обучены модели
const FeatureCount = 156

// Snapshot - неизменяемая версия модели. После загрузки снапшот никогда
// не мутируется и безопасно разделяется между сессиями только на чтение.
type Snapshot struct {
	Version      string
	FeatureNames []string
	Threshold    float64
	Forest       *ForestModel
	Autoencoder  *AutoencoderModel
	Derived      []DerivedSpec
}

// HasAutoencoder сообщает, доступен ли автоэнкодер в этой версии модели
func (s *Snapshot) HasAutoencoder() bool {
	return s.Autoencoder != nil && len(s.Autoencoder.Layers) > 0
}

// Manager выдает активную версию модели. Горячая перезагрузка — атомарная
// подмена снапшота: скоринг, начатый на старой версии, дорабатывает на ней.
type Manager struct {
	current atomic.Pointer[Snapshot]
}

// NewManager загружает артефакт модели и создает менеджер.
// Менеджер конструируется в main и передается в сессии явно.
func NewManager(path string) (*Manager, error) {
	m := &Manager{}
	if err := m.Reload(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Current возвращает активный снапшот модели
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Reload загружает новую версию артефакта и атомарно подменяет снапшот
func (m *Manager) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("failed to parse model artifact: %w", err)
	}

	snapshot, err := buildSnapshot(&artifact)
	if err != nil {
		return fmt.Errorf("invalid model artifact %q: %w", path, err)
	}

	m.current.Store(snapshot)
	log.Printf("[MODEL] Loaded model version=%s features=%d autoencoder=%v threshold=%.2f",
		snapshot.Version, len(snapshot.FeatureNames), snapshot.HasAutoencoder(), snapshot.Threshold)
	return nil
}

// buildSnapshot проверяет согласованность артефакта
func buildSnapshot(a *Artifact) (*Snapshot, error) {
	if len(a.FeatureNames) != FeatureCount {
		return nil, fmt.Errorf("expected %d feature names, got %d", FeatureCount, len(a.FeatureNames))
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, fmt.Errorf("isolation forest is missing")
	}
	if a.Forest.SampleSize < 2 {
		return nil, fmt.Errorf("invalid forest sample size: %d", a.Forest.SampleSize)
	}
	if a.Threshold <= 0 || a.Threshold >= 1 {
		return nil, fmt.Errorf("threshold out of (0,1): %f", a.Threshold)
	}
	for i, d := range a.Derived {
		for _, arg := range d.Args {
			if arg < 0 || arg >= FeatureCount-len(a.Derived)+i {
				return nil, fmt.Errorf("derived feature %q references invalid index %d", d.Name, arg)
			}
		}
	}

	ae := a.Autoencoder
	if ae != nil && len(ae.Layers) == 0 {
		// Секция есть, но весов нет: работаем без автоэнкодера
		ae = nil
	}

	return &Snapshot{
		Version:      a.Version,
		FeatureNames: a.FeatureNames,
		Threshold:    a.Threshold,
		Forest:       a.Forest,
		Autoencoder:  ae,
		Derived:      a.Derived,
	}, nil
}
