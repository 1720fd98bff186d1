package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Notifier --dir ../usecase --output usecase --outpkg usecasemock --filename notifier_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name JobQueue --dir ../usecase --output usecase --outpkg usecasemock --filename job_queue_mock.go
