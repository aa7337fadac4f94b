package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Relayer    RelayerConfig    `mapstructure:"relayer"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	GrpcPort string `mapstructure:"grpc_port"`
}

type LogConfig struct {
	File       string `mapstructure:"file"` // 为空则只输出到 stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"

	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// ChainConfig 目标链与 POA 合约
type ChainConfig struct {
	RpcUrl          string        `mapstructure:"rpc_url"`
	ChainID         int64         `mapstructure:"chain_id"`
	ContractAddress string        `mapstructure:"contract_address"`
	EventID         string        `mapstructure:"event_id"` // 32 字节 hex
	Sponsored       bool          `mapstructure:"sponsored"`
	Simulate        bool          `mapstructure:"simulate"` // 不上链，使用模拟执行器
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// RelayerConfig 代付 Gas 的 relayer 账户 (paymaster 角色)
// 三选一: private_key / mnemonic / keystore_path(+password)
type RelayerConfig struct {
	PrivateKey     string `mapstructure:"private_key"`
	Mnemonic       string `mapstructure:"mnemonic"`
	KeystorePath   string `mapstructure:"keystore_path"`
	Password       string `mapstructure:"password"` // 通常通过环境变量 RELAYER_PASSWORD 传入
	DerivationPath string `mapstructure:"derivation_path"`
}

type SubmissionConfig struct {
	Policy  string        `mapstructure:"policy"` // "strict" or "legacy"
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type IdentityConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ReconcilerConfig struct {
	Spec       string        `mapstructure:"spec"` // cron 表达式
	StaleAfter time.Duration `mapstructure:"stale_after"`
	BatchSize  int           `mapstructure:"batch_size"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			// Config file was found but another error was produced
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")
	viper.SetDefault("app.grpc_port", "50051")

	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 14)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "poa_user")
	viper.SetDefault("db.password", "poa_password")
	viper.SetDefault("db.name", "poa_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")
	viper.SetDefault("redis.pool_size", 20)
	viper.SetDefault("redis.dial_timeout", "5s")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	// Base Sepolia + 演示合约
	viper.SetDefault("chain.rpc_url", "https://sepolia.base.org")
	viper.SetDefault("chain.chain_id", 84532)
	viper.SetDefault("chain.contract_address", "0x696a22e358e861253B7aB7CBa22c3e2667CF9b5B")
	viper.SetDefault("chain.event_id", "0x0000000000000000000000000000000000000000000000000000000000000001")
	viper.SetDefault("chain.sponsored", true)
	viper.SetDefault("chain.simulate", false)
	viper.SetDefault("chain.receipt_timeout", 2*time.Minute)
	viper.SetDefault("chain.poll_interval", 2*time.Second)

	viper.SetDefault("relayer.derivation_path", "m/44'/60'/0'/0/0")

	viper.SetDefault("submission.policy", "strict")
	viper.SetDefault("submission.lock_ttl", 5*time.Minute)

	viper.SetDefault("identity.cache_ttl", 30*time.Second)

	viper.SetDefault("reconciler.spec", "@every 1m")
	viper.SetDefault("reconciler.stale_after", 3*time.Minute)
	viper.SetDefault("reconciler.batch_size", 50)
}
