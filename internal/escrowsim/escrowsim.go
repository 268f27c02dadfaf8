package escrowsim

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Пакет escrowsim генерирует правдоподобные идентификаторы расчётов для
// симулированного эскроу: реального смарт-контракта и платёжного шлюза за
// ними нет, но форматы совпадают с on-chain значениями.

// NewContractAddress возвращает адрес «контракта», выведенный из свежего
// secp256k1-ключа. Ключ сразу выбрасывается.
func NewContractAddress() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// NewTxHash возвращает «хеш транзакции» — keccak256 от случайных байтов.
func NewTxHash() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return hexutil.Encode(crypto.Keccak256(buf[:])), nil
}
