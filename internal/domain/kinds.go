package domain

// Kind — вид записи в record store.
//
// Record store хранит документы по паре (id, kind); перечень kinds
// закрыт и совпадает с персистентными сущностями системы.
type Kind string

const (
	KindExecutionTask  Kind = "execution_task"
	KindExecutionRun   Kind = "execution_run"
	KindTaskLog        Kind = "execution_task_log"
	KindRobotPlan      Kind = "robot_plan"
	KindPlannedRun     Kind = "planned_run"
	KindWorkerLease    Kind = "worker_lease"
	KindIncident       Kind = "incident"
	KindContractReport Kind = "contract_report"
)
