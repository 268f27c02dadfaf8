package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// Длина идентификатора зафиксирована: колонки первичных ключей объявлены
// как size:21.
const idLength = 21

// GenerateNanoID возвращает первичный ключ для любой сущности базы.
func GenerateNanoID() (string, error) {
	return gonanoid.New(idLength)
}
