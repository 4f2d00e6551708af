package domain

import "fmt"

// InstallStage 是安装流程的阶段，严格按声明顺序推进。
type InstallStage string

const (
	StageExtracting             InstallStage = "extracting"
	StageLocating               InstallStage = "locating"
	StageValidating             InstallStage = "validating"
	StageVersionChecking        InstallStage = "version_checking"
	StageProvisioningImages     InstallStage = "provisioning_images"
	StageProvisioningCharts     InstallStage = "provisioning_charts"
	StageProvisioningOntologies InstallStage = "provisioning_ontologies"
	StageProvisioningAgents     InstallStage = "provisioning_agents"
	StagePersisting             InstallStage = "persisting"
	StageDone                   InstallStage = "done"
	StageFailed                 InstallStage = "failed"
)

// InstallError 标明安装失败时所处的阶段，Unwrap 后可用 errors.Is 匹配具体错误。
type InstallError struct {
	Stage InstallStage
	Err   error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install failed at %s: %v", e.Stage, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }
