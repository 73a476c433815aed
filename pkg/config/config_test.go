package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/localchat/pkg/config"
)

var _ = Describe("Load", func() {
	setenv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}

	writeConfig := func(body string) string {
		path := filepath.Join(GinkgoT().TempDir(), "localchat.toml")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		for _, key := range []string{"LLAMA_BASE_URL", "LLAMA_MODEL", "LLAMA_MAX_TOKENS", "LOCALCHAT_LISTEN", "LOCALCHAT_STORE_DRIVER", "DATABASE_URL", "REDIS_URL", "LOCALCHAT_LOG_FORMAT"} {
			setenv(key, "")
		}
	})

	It("falls back to the local inference default when nothing is configured", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Inference.BaseURL).To(Equal("http://localhost:8000"))
		Expect(cfg.Inference.Model).To(Equal("gpt-oss-20b"))
		Expect(cfg.Inference.MaxTokens).To(Equal(512))
		Expect(cfg.Store.Driver).To(Equal("memory"))
		Expect(cfg.Models).To(HaveLen(1))
	})

	It("ignores a missing config file", func() {
		cfg, err := config.Load(filepath.Join(GinkgoT().TempDir(), "nope.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.ListenAddr).To(Equal(":3000"))
	})

	It("reads values from the TOML file", func() {
		path := writeConfig(`
[server]
listen = ":9090"

[inference]
base_url = "http://gpu-box:8080"
temperature = 0.2
timeout = "90s"

[store]
driver = "sqlite"
dsn = "/tmp/ws.db"

[session]
ttl = "1h"
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.ListenAddr).To(Equal(":9090"))
		Expect(cfg.Inference.BaseURL).To(Equal("http://gpu-box:8080"))
		Expect(cfg.Inference.Temperature).To(Equal(0.2))
		Expect(cfg.Inference.Timeout.Duration).To(Equal(90 * time.Second))
		Expect(cfg.Inference.MaxTokens).To(Equal(512))
		Expect(cfg.Store.Driver).To(Equal("sqlite"))
		Expect(cfg.Session.TTL.Duration).To(Equal(time.Hour))
	})

	It("lets the environment override the file", func() {
		path := writeConfig(`
[inference]
base_url = "http://from-file:8000"
`)
		setenv("LLAMA_BASE_URL", "http://from-env:8000")
		setenv("LLAMA_MAX_TOKENS", "256")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Inference.BaseURL).To(Equal("http://from-env:8000"))
		Expect(cfg.Inference.MaxTokens).To(Equal(256))
	})

	It("rejects a postgres store without a DSN", func() {
		path := writeConfig(`
[store]
driver = "postgres"
`)
		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("store.dsn")))
	})

	It("rejects an unknown store driver", func() {
		setenv("LOCALCHAT_STORE_DRIVER", "mongo")
		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("unknown store.driver")))
	})

	It("rejects malformed durations", func() {
		path := writeConfig(`
[inference]
timeout = "soon"
`)
		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("looks models up by id", func() {
		cfg := config.Default()
		m, ok := cfg.Model("gpt-oss-20b")
		Expect(ok).To(BeTrue())
		Expect(m.Name).To(Equal("GPT-OSS 20B"))

		_, ok = cfg.Model("llama-70b")
		Expect(ok).To(BeFalse())
	})
})
