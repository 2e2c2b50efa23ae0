package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	InstanceID         string
	ServerListening    string
	ShuttingDown       string
	MetricsInit        string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	APIServerError     string

	// Broker
	PaperMode        string
	LiveMode         string
	BrokerReady      string
	BrokerInitFailed string

	// Strategies
	StrategiesSeeded   string
	StrategySeedFailed string
	ActiveStrategies   string

	// Trading loop
	TradingAutoStart       string
	TradingAutoStartFailed string
	TradingStopping        string
	TradingStopped         string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting algo-core trading service...",
	ConfigLoaded:       "Config loaded (Port: %s)",
	UsingDBPath:        "Using DB path: %s",
	InstanceID:         "Instance id: %s",
	ServerListening:    "Server listening on :%s",
	ShuttingDown:       "Shutting down gracefully...",
	MetricsInit:        "System metrics initialized",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	APIServerError:     "API server error: %v",

	// Broker
	PaperMode:        "Broker in PAPER mode (orders hit the paper endpoint)",
	LiveMode:         "Broker in LIVE mode (orders hit the live endpoint)",
	BrokerReady:      "Broker connected (account %s, buying power %.2f)",
	BrokerInitFailed: "Broker init failed: %v",

	// Strategies
	StrategiesSeeded:   "Seeded %d strategies from %s",
	StrategySeedFailed: "Failed to seed strategies: %v",
	ActiveStrategies:   "%d active strategies at boot",

	// Trading loop
	TradingAutoStart:       "Trading loop auto-started (interval %ds, position size %.2f)",
	TradingAutoStartFailed: "Trading loop auto-start failed: %v",
	TradingStopping:        "Stopping trading loop...",
	TradingStopped:         "Trading loop stopped.",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "啟動 algo-core 交易服務...",
	ConfigLoaded:       "設定已載入（埠號：%s）",
	UsingDBPath:        "使用資料庫路徑：%s",
	InstanceID:         "實例識別碼：%s",
	ServerListening:    "服務監聽於 :%s",
	ShuttingDown:       "正在優雅關閉...",
	MetricsInit:        "系統指標初始化完成",
	ConfigLoadFailed:   "讀取設定失敗：%v",
	DBInitFailed:       "初始化資料庫失敗：%v",
	DBMigrationsFailed: "套用資料庫遷移失敗：%v",
	APIServerError:     "API 伺服器錯誤：%v",

	// Broker
	PaperMode:        "券商為 PAPER 模式（委託送至模擬端點）",
	LiveMode:         "券商為 LIVE 模式（委託送至真實端點）",
	BrokerReady:      "券商連線完成（帳戶 %s，購買力 %.2f）",
	BrokerInitFailed: "券商初始化失敗：%v",

	// Strategies
	StrategiesSeeded:   "已匯入 %d 筆策略（來源：%s）",
	StrategySeedFailed: "匯入策略失敗：%v",
	ActiveStrategies:   "啟動時有 %d 筆啟用中策略",

	// Trading loop
	TradingAutoStart:       "交易迴圈已自動啟動（週期 %d 秒，倉位比例 %.2f）",
	TradingAutoStartFailed: "交易迴圈自動啟動失敗：%v",
	TradingStopping:        "正在停止交易迴圈...",
	TradingStopped:         "交易迴圈已停止。",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
