package port

import "time"

// InstallMetrics 记录安装、卸载结果。
type InstallMetrics interface {
	ObserveInstall(stage, result string, d time.Duration)
	ObserveUninstall(result string, failedReleases int)
	IncDefinitionSkipped(kind string)
}
