package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"

	"course-media/constant"
)

type Config struct {
	App         App           `yaml:"app"`
	Server      Server        `yaml:"server"`
	Auth        Auth          `yaml:"auth"`
	Upload      Upload        `yaml:"upload"`
	Storage     Storage       `yaml:"storage"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	ObjectStore *minio.Client `yaml:"object_store"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type Auth struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

type Upload struct {
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Storage struct {
	Mode         constant.StorageMode `yaml:"mode"`
	Root         string               `yaml:"root"`
	Bucket       string               `yaml:"bucket"`
	StreamWindow int64                `yaml:"stream_window"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	viper.SetDefault("storage.mode", constant.StorageModeFilesystem.String())
	viper.SetDefault("storage.root", "media")
	viper.SetDefault("storage.stream_window", constant.DefaultStreamWindow)
	viper.SetDefault("upload.session_ttl", constant.DefaultSessionTTL)
	viper.SetDefault("upload.sweep_interval", "5m")
	viper.SetDefault("auth.issuer", "course-media")
	viper.SetDefault("auth.ttl", "24h")

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host:         viper.GetString("rabbitmq_host"),
		Port:         viper.GetInt("rabbitmq_port"),
		User:         viper.GetString("rabbitmq_user"),
		Pass:         viper.GetString("rabbitmq_pass"),
		ExchangeName: viper.GetString("rabbitmq_exchange"),
		Kind:         viper.GetString("rabbitmq_kind"),
	}

	var objectStore *minio.Client
	if constant.StorageMode(viper.GetString("storage.mode")) == constant.StorageModeObject {
		objectStore, err = minio.New(viper.GetString("minio.url"), &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: false,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		Auth: Auth{
			Secret: viper.GetString("auth.secret"),
			Issuer: viper.GetString("auth.issuer"),
			TTL:    viper.GetDuration("auth.ttl"),
		},
		Upload: Upload{
			SessionTTL:    viper.GetDuration("upload.session_ttl"),
			SweepInterval: viper.GetDuration("upload.sweep_interval"),
		},
		Storage: Storage{
			Mode:         constant.StorageMode(viper.GetString("storage.mode")),
			Root:         viper.GetString("storage.root"),
			Bucket:       viper.GetString("minio.bucket"),
			StreamWindow: viper.GetInt64("storage.stream_window"),
		},
		DB:          db,
		Queue:       rabbitmq,
		ObjectStore: objectStore,
	}, nil
}
