package config

type WorkerKeyStruct struct {
	PersistAnswersQueue      string
	PersistWrongAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:      "persist_answers_queue",
	PersistWrongAnswersQueue: "persist_wrong_answers_queue",
}
