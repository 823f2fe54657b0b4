package config

type WorkerKeyStruct struct {
	AutosaveQueueSize int
	AutosaveRetries   int
}

var WorkerKey = &WorkerKeyStruct{
	AutosaveQueueSize: 256,
	AutosaveRetries:   3,
}
