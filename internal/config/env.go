package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by ApplyEnv.
const EnvPrefix = "SEOSCAN"

// ApplyEnv overlays SEOSCAN_* environment variables onto c. Only variables
// that are set change the config, so defaults and file values survive.
// OPENAI_API_KEY is honoured as a fallback for the language model key.
//
// Recognised variables: SEOSCAN_USER_AGENT, SEOSCAN_TIMEOUT, SEOSCAN_MAX_DEPTH,
// SEOSCAN_MAX_PAGES, SEOSCAN_WORKERS, SEOSCAN_CRAWL_DELAY, SEOSCAN_PROXY,
// SEOSCAN_LLM_API_KEY, SEOSCAN_LLM_BASE_URL, SEOSCAN_LLM_MODEL,
// SEOSCAN_REDIS_ADDR, SEOSCAN_REDIS_PASSWORD, SEOSCAN_REDIS_DB,
// SEOSCAN_ELASTICSEARCH_URL, SEOSCAN_ELASTICSEARCH_INDEX, SEOSCAN_DB_DIR.
func (c *Config) ApplyEnv() error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("llm_api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return err
	}

	if v.IsSet("user_agent") {
		c.UserAgent = v.GetString("user_agent")
	}
	if v.IsSet("timeout") {
		c.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("max_depth") {
		c.MaxDepth = v.GetInt("max_depth")
	}
	if v.IsSet("max_pages") {
		c.MaxPages = v.GetInt("max_pages")
	}
	if v.IsSet("workers") {
		c.Workers = v.GetInt("workers")
	}
	if v.IsSet("crawl_delay") {
		c.CrawlDelay = v.GetDuration("crawl_delay")
	}
	if v.IsSet("proxy") {
		c.ProxyAddress = v.GetString("proxy")
	}
	if v.IsSet("llm_api_key") {
		c.LLMAPIKey = v.GetString("llm_api_key")
	}
	if v.IsSet("llm_base_url") {
		c.LLMBaseURL = v.GetString("llm_base_url")
	}
	if v.IsSet("llm_model") {
		c.LLMModel = v.GetString("llm_model")
	}
	if v.IsSet("redis_addr") {
		c.RedisAddr = v.GetString("redis_addr")
	}
	if v.IsSet("redis_password") {
		c.RedisPassword = v.GetString("redis_password")
	}
	if v.IsSet("redis_db") {
		c.RedisDB = v.GetInt("redis_db")
	}
	if v.IsSet("elasticsearch_url") {
		c.ElasticsearchURL = v.GetString("elasticsearch_url")
	}
	if v.IsSet("elasticsearch_index") {
		c.ElasticsearchIndex = v.GetString("elasticsearch_index")
	}
	if v.IsSet("db_dir") {
		c.DBDir = v.GetString("db_dir")
	}
	return nil
}
