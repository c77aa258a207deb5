package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func lookupIn(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

var _ = Describe("Settings", func() {
	It("should default", func() {
		s, err := settingsFromEnv(lookupIn(nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(DefaultSettings()))
		Expect(s.Quantum).To(Equal(uint64(DefaultQuantum)))
	})

	It("should read every variable", func() {
		s, err := settingsFromEnv(lookupIn(map[string]string{
			EnvLogVerbosity: "2",
			EnvMonitorPort:  "8080",
			EnvRecordDB:     "run.sqlite3",
			EnvQuantum:      "0x100",
			EnvOpenBrowser:  "true",
		}))

		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(Settings{
			LogVerbosity: 2,
			MonitorPort:  8080,
			RecordDB:     "run.sqlite3",
			Quantum:      0x100,
			OpenBrowser:  true,
		}))
	})

	It("should report every invalid variable", func() {
		_, err := settingsFromEnv(lookupIn(map[string]string{
			EnvLogVerbosity: "-1",
			EnvQuantum:      "0",
			EnvMonitorPort:  "99999",
		}))

		Expect(err).To(MatchError(ContainSubstring(EnvLogVerbosity)))
		Expect(err).To(MatchError(ContainSubstring(EnvQuantum)))
		Expect(err).To(MatchError(ContainSubstring(EnvMonitorPort)))
	})

	It("should load env files", func() {
		dir := GinkgoT().TempDir()
		file := filepath.Join(dir, "test.env")
		Expect(os.WriteFile(file, []byte(EnvQuantum+"=4096\n"), 0o600)).To(Succeed())

		GinkgoT().Setenv(EnvQuantum, "")
		Expect(os.Unsetenv(EnvQuantum)).To(Succeed())

		s, err := LoadSettings(file)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Quantum).To(Equal(uint64(4096)))

		_, err = LoadSettings(filepath.Join(dir, "missing.env"))
		Expect(err).To(HaveOccurred())
	})
})
