package model

// Artifact описывает обученную модель, экспортированную офлайн-пайплайном.
// Ядро только загружает артефакт и вызывает модель; обучение внешнее.
type Artifact struct {
	Version      string            `json:"version"`
	CreatedAt    string            `json:"created_at"`
	FeatureNames []string          `json:"feature_names"` // Порядок фич - жесткий контракт
	Threshold    float64           `json:"threshold"`
	Forest       *ForestModel      `json:"isolation_forest"`
	Autoencoder  *AutoencoderModel `json:"autoencoder,omitempty"`
	Derived      []DerivedSpec     `json:"derived_features"`
}

// ForestModel содержит ансамбль изолирующих деревьев
type ForestModel struct {
	SampleSize int        `json:"sample_size"` // Размер подвыборки при обучении
	Trees      []TreeSpec `json:"trees"`
}

// TreeSpec - одно изолирующее дерево в виде массива узлов.
// Узел с Left < 0 является листом.
type TreeSpec struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode - узел изолирующего дерева
type TreeNode struct {
	Feature   int     `json:"feature"`   // Индекс фичи для разбиения
	Threshold float64 `json:"threshold"` // Порог разбиения
	Left      int     `json:"left"`      // Индекс левого потомка, -1 для листа
	Right     int     `json:"right"`     // Индекс правого потомка
	Size      int     `json:"size"`      // Число обучающих сэмплов в листе
}

// AutoencoderModel содержит веса полносвязного автоэнкодера
type AutoencoderModel struct {
	Layers     []LayerSpec `json:"layers"`
	ErrorScale float64     `json:"error_scale"` // Нормировка ошибки реконструкции
	InputMean  []float64   `json:"input_mean"`  // Стандартизация входа
	InputStd   []float64   `json:"input_std"`
}

// LayerSpec - один слой сети: y = act(W*x + b)
type LayerSpec struct {
	Weights    [][]float64 `json:"weights"` // [выход][вход]
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"` // "relu" или "linear"
}

// DerivedSpec описывает производную фичу, вычисляемую из базовых.
// Список производных фич принадлежит артефакту: так порядок и состав
// вектора остаются контрактом модели, а не кода.
type DerivedSpec struct {
	Name string  `json:"name"`
	Op   string  `json:"op"`          // ratio, diff, log1p, scale, mean
	Args []int   `json:"args"`        // Индексы базовых фич
	K    float64 `json:"k,omitempty"` // Коэффициент для scale
}
